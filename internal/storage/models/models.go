package models

import "time"

// AnalysisRun is the audit record for one analysis request. It carries
// run metadata only: neither insight text nor fact-pack content is ever
// stored, honoring the no-persistence lifecycle of both.
type AnalysisRun struct {
	ID                string    `json:"id"`
	RangeStart        time.Time `json:"range_start"`
	RangeEnd          time.Time `json:"range_end"`
	DataQuality       string    `json:"data_quality"`
	Requisitions      int       `json:"requisitions"`
	Candidates        int       `json:"candidates"`
	Offers            int       `json:"offers"`
	Hires             int       `json:"hires"`
	Source            string    `json:"source"`
	InsightCount      int       `json:"insight_count"`
	WarningCount      int       `json:"warning_count"`
	ProviderError     string    `json:"provider_error,omitempty"`
	TotalTokens       int       `json:"total_tokens"`
	LatencyMS         int       `json:"latency_ms"`
	CreatedAt         time.Time `json:"created_at"`
}
