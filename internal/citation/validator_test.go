package citation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodedFixture(t *testing.T) map[string]any {
	t.Helper()
	raw := `{
		"metadata": {"schema_version": "2.1", "data_quality": "HIGH"},
		"kpis": {"median_time_to_fill_days": 32.5, "offer_acceptance_rate": null, "open_requisitions": 0},
		"bottleneck_stages": [
			{"stage": "onsite", "avg_days": 9.5},
			{"stage": "screen", "avg_days": 4.0}
		],
		"contributing_reqs": {"zombie": ["req-001", "req-002"]},
		"candidate_decay": {"available": false}
	}`

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	return decoded
}

func TestResolve(t *testing.T) {
	decoded := decodedFixture(t)

	tests := []struct {
		name string
		path string
		ok   bool
	}{
		{"top level object key", "metadata.schema_version", true},
		{"numeric leaf", "kpis.median_time_to_fill_days", true},
		{"zero value is citable", "kpis.open_requisitions", true},
		{"false value is citable", "candidate_decay.available", true},
		{"array index", "bottleneck_stages.1.stage", true},
		{"array element leaf", "contributing_reqs.zombie.0", true},
		{"missing key", "kpis.nonexistent", false},
		{"null terminal", "kpis.offer_acceptance_rate", false},
		{"index out of range", "bottleneck_stages.5.stage", false},
		{"non numeric index", "bottleneck_stages.first.stage", false},
		{"descends past a leaf", "metadata.schema_version.extra", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Resolve(tt.path, decoded)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestValidateEmptyCitationsFlaggedMissing(t *testing.T) {
	res := Validate(nil, decodedFixture(t))
	assert.False(t, res.Valid)
	assert.True(t, res.MissingCitations)
	assert.Empty(t, res.InvalidCitations)
}

func TestValidateMixedCitations(t *testing.T) {
	decoded := decodedFixture(t)

	res := Validate([]string{
		"metadata.data_quality",
		"kpis.offer_acceptance_rate",
		"kpis.invented_metric",
	}, decoded)

	assert.False(t, res.Valid)
	assert.False(t, res.MissingCitations)
	assert.Equal(t, []string{"kpis.offer_acceptance_rate", "kpis.invented_metric"}, res.InvalidCitations)
}

func TestValidateAllResolve(t *testing.T) {
	decoded := decodedFixture(t)

	res := Validate([]string{
		"metadata.schema_version",
		"bottleneck_stages.0.avg_days",
	}, decoded)

	assert.True(t, res.Valid)
	assert.Empty(t, res.InvalidCitations)
}

func TestLeafPaths(t *testing.T) {
	decoded := decodedFixture(t)
	paths := LeafPaths(decoded)

	assert.Contains(t, paths, "metadata.schema_version")
	assert.Contains(t, paths, "bottleneck_stages.1.avg_days")
	assert.Contains(t, paths, "contributing_reqs.zombie.0")

	// Null leaves are the absence sentinel and never citable.
	assert.NotContains(t, paths, "kpis.offer_acceptance_rate")

	// Every enumerated path resolves, by construction.
	for _, p := range paths {
		_, ok := Resolve(p, decoded)
		assert.True(t, ok, "path %q should resolve", p)
	}
}
