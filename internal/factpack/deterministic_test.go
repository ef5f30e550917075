package factpack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-velocity/backend/internal/citation"
	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/pkg/config"
)

func TestDeterministicInsightsAreFullyGrounded(t *testing.T) {
	b := NewBuilder(config.DefaultAnalysis())
	pack, err := b.Build(healthyDataset())
	require.NoError(t, err)

	require.NotEmpty(t, pack.DeterministicInsights)
	assert.LessOrEqual(t, len(pack.DeterministicInsights), config.DefaultAnalysis().MaxInsights)

	decoded := pack.Decoded()
	for _, ins := range pack.DeterministicInsights {
		assert.NotEmpty(t, ins.ID)
		assert.NotEmpty(t, ins.Title)
		assert.True(t, ValidSeverity(ins.Severity), "insight %s has severity %q", ins.ID, ins.Severity)
		assert.NotEmpty(t, ins.Actions)

		vr := citation.Validate(ins.Citations, decoded)
		assert.True(t, vr.Valid, "insight %s cites unresolvable paths: %v", ins.ID, vr.InvalidCitations)
	}
}

func TestDeterministicRuleSelection(t *testing.T) {
	b := NewBuilder(config.DefaultAnalysis())
	pack, err := b.Build(healthyDataset())
	require.NoError(t, err)

	ids := map[string]Insight{}
	for _, ins := range pack.DeterministicInsights {
		ids[ins.ID] = ins
	}

	require.Contains(t, ids, "det-time-to-fill")
	assert.Equal(t, SeverityP2, ids["det-time-to-fill"].Severity)

	require.Contains(t, ids, "det-offer-acceptance")
	require.Contains(t, ids, "det-offer-decay")
	require.Contains(t, ids, "det-cohort-gap")

	// No events in the dataset: the generator has to say so.
	require.Contains(t, ids, "det-stage-timing")

	// No idle requisitions and no strong load trend.
	assert.NotContains(t, ids, "det-zombie-reqs")
	assert.NotContains(t, ids, "det-recruiter-load")
}

func TestDeterministicZombieEscalation(t *testing.T) {
	build := func(zombies int) *FactPack {
		var reqs []pipeline.Requisition
		for i := 0; i < zombies; i++ {
			reqs = append(reqs, pipeline.Requisition{
				ID:             fmt.Sprintf("req-z%d", i),
				Status:         pipeline.RequisitionOpen,
				OpenedAt:       testBase,
				LastActivityAt: dayPtr(50),
			})
		}
		pack, err := NewBuilder(config.DefaultAnalysis()).Build(pipeline.Dataset{
			Requisitions: reqs,
			Range:        pipeline.DateRange{Start: testBase, End: day(100)},
		})
		require.NoError(t, err)
		return pack
	}

	find := func(pack *FactPack) *Insight {
		for _, ins := range pack.DeterministicInsights {
			if ins.ID == "det-zombie-reqs" {
				return &ins
			}
		}
		return nil
	}

	one := find(build(1))
	require.NotNil(t, one)
	assert.Equal(t, SeverityP1, one.Severity)

	many := find(build(5))
	require.NotNil(t, many)
	assert.Equal(t, SeverityP0, many.Severity)
}

func TestDeterministicCapRespectsConfig(t *testing.T) {
	cfg := config.DefaultAnalysis()
	cfg.MaxInsights = 2

	pack, err := NewBuilder(cfg).Build(healthyDataset())
	require.NoError(t, err)

	assert.Len(t, pack.DeterministicInsights, 2)
}
