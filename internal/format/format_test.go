package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbramwell/halin/internal/model"
)

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{"zero", 0, "0.00 ms"},
		{"small_ms", 2340 * time.Microsecond, "2.34 ms"},
		{"just_under_1s", 999990 * time.Microsecond, "999.99 ms"},
		{"exactly_1s", time.Second, "1.00 s"},
		{"one_and_half_s", 1500 * time.Millisecond, "1.50 s"},
		{"failed", -1, "---"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatLatency(tc.input))
		})
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatAge(time.Time{}, now))
	assert.Equal(t, "just now", FormatAge(now.Add(-300*time.Millisecond), now))
	assert.Equal(t, "5s ago", FormatAge(now.Add(-5500*time.Millisecond), now))
	assert.Equal(t, "2m0s ago", FormatAge(now.Add(-2*time.Minute), now))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{"zero", 0, "0"},
		{"three_digits", 999, "999"},
		{"thousand", 1000, "1,000"},
		{"millions", 12345678, "12,345,678"},
		{"negative", -1234567, "-1,234,567"},
		{"min_int64", math.MinInt64, "-9,223,372,036,854,775,808"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatNumber(tc.input))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "1023 B", FormatBytes(1023))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 GiB", FormatBytes(1610612736))
	assert.Equal(t, "2.0 TiB", FormatBytes(2<<40))
}

func TestCSVize(t *testing.T) {
	assert.Equal(t, `"plain"`, CSVize("plain"))
	assert.Equal(t, `"say ""hi"""`, CSVize(`say "hi"`))
	assert.Equal(t, `""`, CSVize(""))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "1G", Stringify("1G"))
	assert.Equal(t, "Permission denied", Stringify(model.ProbeError("Permission denied")))
	assert.Equal(t, "42", Stringify(int64(42)))
	assert.Equal(t, `["bolt","http"]`, Stringify([]string{"bolt", "http"}))
	assert.Equal(t, `{"state":"ONLINE"}`, Stringify(map[string]any{"state": "ONLINE"}))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	records := []model.Record{
		{Node: "bolt://core1:7687", Domain: "config", Key: "dbms.jvm.additional", Value: `-Dname="quoted"`},
		{Node: "bolt://core1:7687", Domain: "index", Key: "0", Value: map[string]any{"description": `INDEX ON :A("x")`}},
		{Node: model.NotApplicable, Domain: "halin", Key: "halinVersion", Value: "0.1.0"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, `-Dname="quoted"`, rows[1][3])
	assert.Equal(t, "halinVersion", rows[3][2])

	var idx map[string]string
	require.NoError(t, json.Unmarshal([]byte(rows[2][3]), &idx))
	assert.Equal(t, `INDEX ON :A("x")`, idx["description"])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "\"node\",\"domain\",\"key\",\"value\"\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	pkg := &model.Package{
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Nodes:       []model.NodeDiagnostics{{Node: "bolt://core1:7687", Role: model.RoleLeader}},
		Records:     []model.Record{{Node: "bolt://core1:7687", Domain: "apoc", Key: "version", Value: model.ProbeError("Unknown function")}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, pkg))

	var decoded struct {
		GeneratedAt string `json:"generated_at"`
		Nodes       []struct {
			Role string `json:"role"`
		} `json:"nodes"`
		Records []struct {
			Value string `json:"value"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded.GeneratedAt)
	assert.Equal(t, "LEADER", decoded.Nodes[0].Role)
	assert.Equal(t, "Unknown function", decoded.Records[0].Value)
}
