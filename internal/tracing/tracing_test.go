package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_Disabled(t *testing.T) {
	shutdown, err := Setup(false, nil)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	got, span := StartSpan(ctx, "noop", "node", "a")
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() { span.End(errors.New("x")) })
	assert.False(t, Enabled())
}

func TestStartSpan_EnabledExports(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(true, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Setup(false, nil) })

	_, span := StartSpan(context.Background(), "diagnostics.probe", "domain", "jmx")
	span.End(errors.New("timeout"))

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "diagnostics.probe")
	assert.Contains(t, buf.String(), "timeout")
}
