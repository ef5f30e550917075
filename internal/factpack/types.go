// Package factpack builds the single redacted snapshot of computed
// metrics that grounds all insight generation. A pack is assembled once
// per analysis request, never mutated afterwards, and never persisted.
package factpack

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pipeline-velocity/backend/internal/analytics"
	"github.com/pipeline-velocity/backend/internal/confidence"
)

// SchemaVersion is the wire-contract version for the fact-pack key set.
// Any key rename or removal must bump it.
const SchemaVersion = "2.1"

type Metadata struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	RangeStart    time.Time `json:"range_start"`
	RangeEnd      time.Time `json:"range_end"`
	DataQuality   string    `json:"data_quality"`
}

type SampleSizes struct {
	Requisitions int `json:"requisitions"`
	Candidates   int `json:"candidates"`
	Offers       int `json:"offers"`
	Hires        int `json:"hires"`
	Events       int `json:"events"`
}

type KPIs struct {
	MedianTimeToFillDays *float64 `json:"median_time_to_fill_days,omitempty"`
	AvgTimeToFillDays    *float64 `json:"avg_time_to_fill_days,omitempty"`
	OfferAcceptanceRate  *float64 `json:"offer_acceptance_rate,omitempty"`
	OfferAcceptanceText  string   `json:"offer_acceptance_text"`
	ReferralRate         *float64 `json:"referral_rate,omitempty"`
	OpenRequisitions     int      `json:"open_requisitions"`
	AvgPipelineDepth     float64  `json:"avg_pipeline_depth"`
}

type StageTiming struct {
	Capability string           `json:"capability"`
	Available  bool             `json:"available"`
	Confidence confidence.Level `json:"confidence"`
}

// DecayBlock gates a decay curve behind its sample-size threshold.
type DecayBlock struct {
	Available    bool                    `json:"available"`
	GatingReason string                  `json:"gating_reason,omitempty"`
	Confidence   confidence.Level        `json:"confidence,omitempty"`
	Result       *analytics.DecayResult  `json:"result,omitempty"`
}

type CohortBlock struct {
	Available    bool                        `json:"available"`
	GatingReason string                      `json:"gating_reason,omitempty"`
	Confidence   confidence.Level            `json:"confidence,omitempty"`
	Result       *analytics.CohortComparison `json:"result,omitempty"`
}

type LoadBlock struct {
	Available    bool                    `json:"available"`
	GatingReason string                  `json:"gating_reason,omitempty"`
	Result       *analytics.LoadAnalysis `json:"result,omitempty"`
}

type BottleneckStage struct {
	Stage       string  `json:"stage"`
	AvgDays     float64 `json:"avg_days"`
	SampleCount int     `json:"sample_count"`
}

// ContributingReqs lists requisition identifiers only. Never titles, never
// any free text: this is the redaction contract.
type ContributingReqs struct {
	Stalled  []string `json:"stalled"`
	Zombie   []string `json:"zombie"`
	SlowFill []string `json:"slow_fill"`
	FastFill []string `json:"fast_fill"`
}

// Insight is one grounded claim. Every citation must resolve inside the
// fact pack the insight was generated from.
type Insight struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Severity  string   `json:"severity"`
	Claim     string   `json:"claim"`
	Rationale string   `json:"rationale"`
	Actions   []string `json:"actions"`
	Citations []string `json:"citations"`
}

const (
	SeverityP0 = "P0"
	SeverityP1 = "P1"
	SeverityP2 = "P2"
)

func ValidSeverity(s string) bool {
	return s == SeverityP0 || s == SeverityP1 || s == SeverityP2
}

// FactPack is the stable, versioned wire contract. Key names are part of
// the citation whitelist; see Decoded.
type FactPack struct {
	Metadata              Metadata          `json:"metadata"`
	SampleSizes           SampleSizes       `json:"sample_sizes"`
	KPIs                  KPIs              `json:"kpis"`
	StageTiming           StageTiming       `json:"stage_timing"`
	CandidateDecay        DecayBlock        `json:"candidate_decay"`
	ReqDecay              DecayBlock        `json:"req_decay"`
	CohortComparison      CohortBlock       `json:"cohort_comparison"`
	LoadAnalysis          LoadBlock         `json:"load_analysis"`
	BottleneckStages      []BottleneckStage `json:"bottleneck_stages"`
	ContributingReqs      ContributingReqs  `json:"contributing_reqs"`
	Definitions           map[string]string `json:"definitions"`
	DeterministicInsights []Insight         `json:"deterministic_insights"`

	decoded map[string]any
}

// Decoded returns the pack as a generic map tree, the form citation
// resolution and the deterministic generator operate on. Computed once at
// build time so the traversal target is exactly what goes over the wire.
func (fp *FactPack) Decoded() map[string]any {
	return fp.decoded
}

func (fp *FactPack) seal() error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to encode fact pack: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode fact pack: %w", err)
	}
	fp.decoded = decoded
	return nil
}

// definitions documents each metric for downstream consumers and the
// generation model. Static text only.
func definitions() map[string]string {
	return map[string]string{
		"time_to_fill":      "Whole days from requisition opening to the hire landing.",
		"offer_acceptance":  "Accepted offers over all decided offers in the window.",
		"decay":             "Decline of an outcome rate as elapsed time in process increases.",
		"cohort_comparison": "Contrast between the fastest and slowest time-to-fill quartiles of completed hires.",
		"load_analysis":     "Correlation between a recruiter's concurrent open requisitions and hire speed.",
		"stalled":           "Open requisition with 14-30 days without recorded activity.",
		"zombie":            "Open requisition with 30 or more days without recorded activity.",
		"slow_fill":         "Requisition closed after more than 60 days.",
		"fast_fill":         "Requisition closed within 30 days.",
		"data_quality":      "Aggregate grade over which sample groups cleared their minimum thresholds.",
	}
}
