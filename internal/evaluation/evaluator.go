// Package evaluation scores how well a generation result is grounded in
// the fact pack it was produced from.
package evaluation

import (
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/citation"
	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/internal/insight"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

// InsightGrounding is the per-insight validation verdict.
type InsightGrounding struct {
	ID               string   `json:"id"`
	Valid            bool     `json:"valid"`
	InvalidCitations []string `json:"invalid_citations,omitempty"`
	MissingCitations bool     `json:"missing_citations,omitempty"`
}

// GroundingReport aggregates citation validity across a whole result.
type GroundingReport struct {
	TotalInsights     int                `json:"total_insights"`
	FullyGrounded     int                `json:"fully_grounded"`
	PartiallyGrounded int                `json:"partially_grounded"`
	Ungrounded        int                `json:"ungrounded"`
	TotalCitations    int                `json:"total_citations"`
	InvalidCitations  int                `json:"invalid_citations"`
	GroundingRate     float64            `json:"grounding_rate"`
	PerInsight        []InsightGrounding `json:"per_insight"`
}

// EvaluateGrounding re-validates every citation of every insight against
// the pack. The orchestrator has already run the validator once; this
// report is the caller-facing summary of the same check.
func EvaluateGrounding(result insight.Result, pack *factpack.FactPack) *GroundingReport {
	report := &GroundingReport{
		TotalInsights: len(result.Insights),
		PerInsight:    []InsightGrounding{},
	}

	decoded := pack.Decoded()
	for _, ins := range result.Insights {
		vr := citation.Validate(ins.Citations, decoded)

		grounding := InsightGrounding{
			ID:               ins.ID,
			Valid:            vr.Valid,
			InvalidCitations: vr.InvalidCitations,
			MissingCitations: vr.MissingCitations,
		}
		report.PerInsight = append(report.PerInsight, grounding)

		report.TotalCitations += len(ins.Citations)
		report.InvalidCitations += len(vr.InvalidCitations)

		switch {
		case vr.MissingCitations, len(vr.InvalidCitations) == len(ins.Citations):
			report.Ungrounded++
		case vr.Valid:
			report.FullyGrounded++
		default:
			report.PartiallyGrounded++
		}
	}

	if report.TotalCitations > 0 {
		report.GroundingRate = float64(report.TotalCitations-report.InvalidCitations) / float64(report.TotalCitations)
	}

	if report.InvalidCitations > 0 {
		logger.Warn("Result contains unresolved citations",
			zap.String("source", result.Source),
			zap.Int("invalid_citations", report.InvalidCitations),
			zap.Int("total_citations", report.TotalCitations),
		)
	}

	return report
}
