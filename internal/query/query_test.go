package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_NamesUniqueAndValid(t *testing.T) {
	cat := Catalog()
	assert.Len(t, cat, 24)
	for name, q := range cat {
		assert.Equal(t, name, q.Name)
		assert.NotEmpty(t, q.Cypher, name)
	}
}

func TestValidate_MissingParameters(t *testing.T) {
	err := APOCMetricsGet.Validate(map[string]any{"metric": "neo4j.page_cache.hits"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing parameters last")

	require.NoError(t, APOCMetricsGet.Validate(map[string]any{"metric": "m", "last": int64(1)}))
}

func TestValidate_EmptyCypher(t *testing.T) {
	err := Query{Name: "blank", Cypher: "  "}.Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty cypher")
}

func TestAccessors(t *testing.T) {
	assert.Equal(t, []string{"role"}, ClusterRole.Accessors())
	assert.Equal(t, []string{"id", "addresses", "role", "database"}, ClusterOverview.Accessors())
}

func TestDependencyString(t *testing.T) {
	assert.Equal(t, "deploy:cluster", ClusterRole.Dependency.String())
	assert.Nil(t, ListConfig.Dependency)
}

func TestSampledQueries_RateAndDependency(t *testing.T) {
	assert.Equal(t, 2*time.Second, JMXPageCache.Rate)
	assert.Equal(t, "edition:enterprise", JMXPageCache.Dependency.String())
	assert.Equal(t, time.Minute, APOCStorageMetric.Rate)
	assert.Equal(t, "procedure:apoc.metrics.storage", APOCStorageMetric.Dependency.String())
	assert.Zero(t, APOCMetricsGet.Rate)
}
