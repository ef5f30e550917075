package insight

import (
	"fmt"
	"strings"

	"github.com/pipeline-velocity/backend/internal/citation"
	"github.com/pipeline-velocity/backend/internal/factpack"
)

// Deterministic returns the pack's own rule-based insights as a Result.
// Their citations are valid by construction, but they still pass through
// the validator because no path to a caller may skip it.
func Deterministic(pack *factpack.FactPack) Result {
	result := Result{
		Source:   SourceDeterministic,
		Insights: []factpack.Insight{},
	}

	decoded := pack.Decoded()
	for _, ins := range pack.DeterministicInsights {
		vr := citation.Validate(ins.Citations, decoded)
		if !vr.Valid {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("insight %q has unresolved citations: %s", ins.Title, strings.Join(vr.InvalidCitations, ", ")))
		}
		result.Insights = append(result.Insights, ins)
	}

	return result
}
