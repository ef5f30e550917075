package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/citation"
	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

const (
	SourceLLM           = "llm"
	SourceDeterministic = "deterministic"
)

// Result is what every generation path returns. Error is a human-readable
// reason when the insight list is empty because of a failure; it is never
// a panic surface.
type Result struct {
	Insights  []factpack.Insight `json:"insights"`
	Warnings  []string           `json:"warnings,omitempty"`
	Source    string             `json:"source"`
	Error     string             `json:"error,omitempty"`
	Usage     Usage              `json:"usage"`
	LatencyMS int                `json:"latency_ms"`
}

// Orchestrator drives one provider round trip: prompt assembly, the
// single outbound request, response parsing, and citation validation.
type Orchestrator struct {
	provider    Provider
	maxInsights int
}

func NewOrchestrator(provider Provider, maxInsights int) *Orchestrator {
	if maxInsights <= 0 {
		maxInsights = 7
	}
	return &Orchestrator{provider: provider, maxInsights: maxInsights}
}

const systemInstruction = `You are a recruiting-pipeline analyst. You will receive a fact pack: a JSON snapshot of computed metrics. It is your ONLY source of truth.

Rules:
1. Every claim must cite exact fact-pack paths in dot notation (e.g. "kpis.median_time_to_fill_days"). Cite only paths that exist in the fact pack.
2. Never invent numbers. Use only values present in the fact pack.
3. Never mention or speculate about any person. The fact pack contains no personal data; your output must not either.
4. Skip any analysis block whose "available" flag is false.

Respond with JSON only, in this shape:
{"insights": [{"title": "...", "severity": "P0|P1|P2", "claim": "one sentence", "rationale": "one sentence on urgency", "actions": ["1-3 recommended actions"], "citations": ["dot.path", "..."]}]}

Return at most %d insights, ordered by severity.`

// Generate runs the full orchestration for one fact pack. Provider,
// transport, and decode failures all degrade to an empty insight list
// with a reason string.
func (o *Orchestrator) Generate(ctx context.Context, pack *factpack.FactPack) Result {
	payload, err := json.Marshal(pack)
	if err != nil {
		return Result{Insights: []factpack.Insight{}, Source: SourceLLM,
			Error: fmt.Sprintf("failed to encode fact pack: %v", err)}
	}

	req := GenerationRequest{
		System: fmt.Sprintf(systemInstruction, o.maxInsights),
		Messages: []Message{
			{Role: "user", Content: string(payload)},
		},
		Task: "pipeline_velocity_insights",
	}

	resp, err := o.provider.Generate(ctx, req)
	if err != nil {
		logger.Warn("Insight generation provider failed", zap.Error(err))
		return Result{Insights: []factpack.Insight{}, Source: SourceLLM,
			Error: fmt.Sprintf("generation provider error: %v", err)}
	}

	result := Result{
		Source:    SourceLLM,
		Usage:     resp.Usage,
		LatencyMS: resp.LatencyMS,
	}

	candidates, err := parseInsightPayload(resp.Content)
	if err != nil {
		result.Insights = []factpack.Insight{}
		result.Error = err.Error()
		return result
	}

	decoded := pack.Decoded()
	insights := make([]factpack.Insight, 0, len(candidates))
	dropped := 0
	for _, raw := range candidates {
		ins, ok := coerceInsight(raw)
		if !ok {
			dropped++
			continue
		}

		vr := citation.Validate(ins.Citations, decoded)
		if !vr.Valid {
			// Partially grounded insights are kept; the violation is
			// surfaced as a response-level warning instead.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("insight %q has unresolved citations: %s", ins.Title, strings.Join(vr.InvalidCitations, ", ")))
		}

		insights = append(insights, ins)
		if len(insights) >= o.maxInsights {
			break
		}
	}

	if dropped > 0 {
		logger.Debug("Dropped malformed insight candidates", zap.Int("dropped", dropped))
	}

	result.Insights = insights
	if len(insights) == 0 && len(candidates) > 0 {
		result.Error = "no candidate insight carried the required fields"
	}
	return result
}

// parseInsightPayload extracts the first balanced JSON-like substring from
// the provider's text and pulls the candidate insight objects out of it.
func parseInsightPayload(content string) ([]map[string]any, error) {
	fragment, ok := firstJSONFragment(content)
	if !ok {
		return nil, fmt.Errorf("no parseable object found in provider response")
	}

	var decoded any
	if err := json.Unmarshal([]byte(fragment), &decoded); err != nil {
		return nil, fmt.Errorf("provider response is not valid JSON: %v", err)
	}

	var items []any
	switch node := decoded.(type) {
	case map[string]any:
		if list, ok := node["insights"].([]any); ok {
			items = list
		} else {
			// A single bare insight object.
			items = []any{node}
		}
	case []any:
		items = node
	}

	candidates := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			candidates = append(candidates, m)
		}
	}
	return candidates, nil
}

// firstJSONFragment scans for the first balanced {...} or [...] span,
// tracking string literals and escapes so braces inside text don't count.
func firstJSONFragment(content string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{', '[':
			if start < 0 {
				start = i
			}
			depth++
		case '}', ']':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}

// coerceInsight validates a loosely-typed candidate field by field. A
// candidate missing any required field is discarded, never guessed at.
func coerceInsight(raw map[string]any) (factpack.Insight, bool) {
	ins := factpack.Insight{}

	ins.Title = stringField(raw, "title")
	ins.Claim = stringField(raw, "claim")
	ins.Rationale = stringField(raw, "rationale")
	if ins.Title == "" || ins.Claim == "" || ins.Rationale == "" {
		return ins, false
	}

	ins.Severity = stringField(raw, "severity")
	if !factpack.ValidSeverity(ins.Severity) {
		ins.Severity = factpack.SeverityP2
	}

	ins.Actions = stringSlice(raw, "actions")
	if len(ins.Actions) == 0 {
		return ins, false
	}
	if len(ins.Actions) > 3 {
		ins.Actions = ins.Actions[:3]
	}

	ins.Citations = stringSlice(raw, "citations")
	if len(ins.Citations) == 0 {
		return ins, false
	}

	ins.ID = stringField(raw, "id")
	if ins.ID == "" {
		ins.ID = uuid.New().String()
	}

	return ins, true
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringSlice(raw map[string]any, key string) []string {
	list, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
