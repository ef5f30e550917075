package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/pkg/config"
)

type fakeProvider struct {
	content string
	err     error
	lastReq GenerationRequest
}

func (f *fakeProvider) Generate(_ context.Context, req GenerationRequest) (*GenerationResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &GenerationResponse{
		Content:   f.content,
		Usage:     Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		LatencyMS: 42,
	}, nil
}

func testPack(t *testing.T) *factpack.FactPack {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := base.AddDate(0, 0, 90)
	ds := pipeline.Dataset{
		Requisitions: []pipeline.Requisition{
			{ID: "req-00", Status: pipeline.RequisitionOpen, OpenedAt: base, LastActivityAt: &end},
		},
		Range: pipeline.DateRange{Start: base, End: end},
	}

	pack, err := factpack.NewBuilder(config.DefaultAnalysis()).Build(ds)
	require.NoError(t, err)
	return pack
}

func TestGenerateHappyPath(t *testing.T) {
	provider := &fakeProvider{content: `{"insights": [{
		"title": "Open requisition count",
		"severity": "P1",
		"claim": "There is one open requisition in the window.",
		"rationale": "Open headcount is the denominator for every velocity metric.",
		"actions": ["Review open requisitions weekly"],
		"citations": ["kpis.open_requisitions", "metadata.data_quality"]
	}]}`}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Error)
	assert.Equal(t, SourceLLM, result.Source)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Insights, 1)

	ins := result.Insights[0]
	assert.Equal(t, "Open requisition count", ins.Title)
	assert.Equal(t, factpack.SeverityP1, ins.Severity)
	assert.NotEmpty(t, ins.ID)

	assert.Equal(t, 150, result.Usage.TotalTokens)
	assert.Equal(t, 42, result.LatencyMS)

	// The fact pack is the entire user message.
	require.Len(t, provider.lastReq.Messages, 1)
	assert.Contains(t, provider.lastReq.Messages[0].Content, "schema_version")
}

func TestGenerateExtractsJSONFromProse(t *testing.T) {
	provider := &fakeProvider{content: "Here is my analysis:\n```json\n" + `{"insights": [{
		"title": "T", "severity": "P2", "claim": "C", "rationale": "R",
		"actions": ["a"], "citations": ["metadata.schema_version"]
	}]}` + "\n```\nLet me know if you need more."}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Error)
	require.Len(t, result.Insights, 1)
}

func TestGenerateProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Insights)
	assert.Equal(t, SourceLLM, result.Source)
	assert.Contains(t, result.Error, "connection refused")
}

func TestGenerateUnparseableResponse(t *testing.T) {
	provider := &fakeProvider{content: "I cannot help with that."}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Insights)
	assert.Contains(t, result.Error, "no parseable object")
}

func TestGenerateKeepsPartiallyGroundedWithWarning(t *testing.T) {
	provider := &fakeProvider{content: `{"insights": [{
		"title": "Invented trend",
		"severity": "P0",
		"claim": "Acceptance is collapsing.",
		"rationale": "Urgent.",
		"actions": ["Panic"],
		"citations": ["metadata.schema_version", "kpis.fabricated_metric"]
	}]}`}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	require.Len(t, result.Insights, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "kpis.fabricated_metric")
	assert.Contains(t, result.Warnings[0], "Invented trend")
}

func TestGenerateDropsMalformedCandidates(t *testing.T) {
	provider := &fakeProvider{content: `{"insights": [
		{"title": "No claim", "severity": "P2", "rationale": "R", "actions": ["a"], "citations": ["metadata.schema_version"]},
		{"title": "No actions", "severity": "P2", "claim": "C", "rationale": "R", "citations": ["metadata.schema_version"]},
		{"title": "No citations", "severity": "P2", "claim": "C", "rationale": "R", "actions": ["a"]}
	]}`}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Insights)
	assert.Equal(t, "no candidate insight carried the required fields", result.Error)
}

func TestGenerateCoercesInvalidSeverity(t *testing.T) {
	provider := &fakeProvider{content: `{"insights": [{
		"title": "T", "severity": "URGENT", "claim": "C", "rationale": "R",
		"actions": ["a", "b", "c", "d", "e"], "citations": ["metadata.schema_version"]
	}]}`}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	require.Len(t, result.Insights, 1)
	assert.Equal(t, factpack.SeverityP2, result.Insights[0].Severity)
	assert.Len(t, result.Insights[0].Actions, 3)
}

func TestGenerateCapsInsightCount(t *testing.T) {
	provider := &fakeProvider{content: `{"insights": [
		{"title": "1", "claim": "C", "rationale": "R", "actions": ["a"], "citations": ["metadata.schema_version"]},
		{"title": "2", "claim": "C", "rationale": "R", "actions": ["a"], "citations": ["metadata.schema_version"]},
		{"title": "3", "claim": "C", "rationale": "R", "actions": ["a"], "citations": ["metadata.schema_version"]}
	]}`}

	o := NewOrchestrator(provider, 2)
	result := o.Generate(context.Background(), testPack(t))

	assert.Len(t, result.Insights, 2)
}

func TestGenerateAcceptsBareArray(t *testing.T) {
	provider := &fakeProvider{content: `[{"title": "T", "claim": "C", "rationale": "R", "actions": ["a"], "citations": ["metadata.schema_version"]}]`}

	o := NewOrchestrator(provider, 7)
	result := o.Generate(context.Background(), testPack(t))

	assert.Empty(t, result.Error)
	assert.Len(t, result.Insights, 1)
}

func TestFirstJSONFragment(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"leading prose", `sure: {"a": 1} done`, `{"a": 1}`, true},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`, true},
		{"escaped quote inside string", `{"a": "\"}"}`, `{"a": "\"}"}`, true},
		{"array", `[1, 2]`, `[1, 2]`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"no json at all", "plain text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONFragment(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeterministicFallback(t *testing.T) {
	pack := testPack(t)

	result := Deterministic(pack)
	assert.Equal(t, SourceDeterministic, result.Source)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.Insights, len(pack.DeterministicInsights))
}
