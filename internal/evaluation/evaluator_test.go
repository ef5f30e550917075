package evaluation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/internal/insight"
	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/pkg/config"
)

func buildPack(t *testing.T) *factpack.FactPack {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := base.AddDate(0, 0, 90)
	pack, err := factpack.NewBuilder(config.DefaultAnalysis()).Build(pipeline.Dataset{
		Requisitions: []pipeline.Requisition{
			{ID: "req-00", Status: pipeline.RequisitionOpen, OpenedAt: base, LastActivityAt: &end},
		},
		Range: pipeline.DateRange{Start: base, End: end},
	})
	require.NoError(t, err)
	return pack
}

func TestEvaluateGrounding(t *testing.T) {
	pack := buildPack(t)

	result := insight.Result{
		Source: insight.SourceLLM,
		Insights: []factpack.Insight{
			{
				ID:        "good",
				Title:     "Fully grounded",
				Citations: []string{"metadata.schema_version", "kpis.open_requisitions"},
			},
			{
				ID:        "partial",
				Title:     "Half grounded",
				Citations: []string{"metadata.schema_version", "kpis.fabricated"},
			},
			{
				ID:        "bad",
				Title:     "Ungrounded",
				Citations: []string{"kpis.fabricated", "made.up"},
			},
			{
				ID:    "empty",
				Title: "No citations at all",
			},
		},
	}

	report := EvaluateGrounding(result, pack)

	assert.Equal(t, 4, report.TotalInsights)
	assert.Equal(t, 1, report.FullyGrounded)
	assert.Equal(t, 1, report.PartiallyGrounded)
	assert.Equal(t, 2, report.Ungrounded)

	assert.Equal(t, 6, report.TotalCitations)
	assert.Equal(t, 3, report.InvalidCitations)
	assert.InDelta(t, 0.5, report.GroundingRate, 1e-9)

	require.Len(t, report.PerInsight, 4)
	assert.True(t, report.PerInsight[0].Valid)
	assert.False(t, report.PerInsight[1].Valid)
	assert.Equal(t, []string{"kpis.fabricated"}, report.PerInsight[1].InvalidCitations)
	assert.True(t, report.PerInsight[3].MissingCitations)
}

func TestEvaluateGroundingEmptyResult(t *testing.T) {
	report := EvaluateGrounding(insight.Result{Source: insight.SourceDeterministic}, buildPack(t))

	assert.Equal(t, 0, report.TotalInsights)
	assert.Equal(t, 0.0, report.GroundingRate)
	assert.Empty(t, report.PerInsight)
}
