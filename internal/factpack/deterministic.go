package factpack

import (
	"fmt"
	"strings"

	"github.com/pipeline-velocity/backend/pkg/config"
)

// GenerateDeterministicSummary is the generation-model-free fallback: a
// fixed rule set over the pack's own fields. Each rule cites exactly the
// fields it read, so every citation resolves by construction. At most
// cfg.MaxInsights insights are returned.
func GenerateDeterministicSummary(pack *FactPack, cfg config.AnalysisConfig) []Insight {
	maxInsights := cfg.MaxInsights
	if maxInsights <= 0 {
		maxInsights = 7
	}

	insights := []Insight{}

	if ins := timeToFillInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := offerAcceptanceInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := decayInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := cohortGapInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := zombieInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := stageTimingInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := loadInsight(pack); ins != nil {
		insights = append(insights, *ins)
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func timeToFillInsight(pack *FactPack) *Insight {
	med := pack.KPIs.MedianTimeToFillDays
	if med == nil {
		return nil
	}

	severity := SeverityP2
	if *med > 45 {
		severity = SeverityP1
	}

	return &Insight{
		ID:        "det-time-to-fill",
		Title:     "Time-to-fill velocity",
		Severity:  severity,
		Claim:     fmt.Sprintf("Median time to fill across %d completed hires is %.1f days.", pack.SampleSizes.Hires, *med),
		Rationale: "Time to fill is the primary velocity measure for the pipeline.",
		Actions: []string{
			"Review the slowest open requisitions against the median.",
		},
		Citations: []string{
			"kpis.median_time_to_fill_days",
			"sample_sizes.hires",
		},
	}
}

func offerAcceptanceInsight(pack *FactPack) *Insight {
	if pack.SampleSizes.Offers < 5 || pack.KPIs.OfferAcceptanceRate == nil {
		return nil
	}

	rate := *pack.KPIs.OfferAcceptanceRate
	severity := SeverityP2
	if rate < 0.7 {
		severity = SeverityP1
	}

	return &Insight{
		ID:        "det-offer-acceptance",
		Title:     "Offer acceptance rate",
		Severity:  severity,
		Claim:     fmt.Sprintf("Offer acceptance rate over %d offers is %.1f%%.", pack.SampleSizes.Offers, rate*100),
		Rationale: "Declined offers waste the most expensive stage of the pipeline.",
		Actions: []string{
			"Compare compensation on declined offers against accepted ones.",
			"Shorten the interview-to-offer gap on active requisitions.",
		},
		Citations: []string{
			"kpis.offer_acceptance_rate",
			"sample_sizes.offers",
		},
	}
}

func decayInsight(pack *FactPack) *Insight {
	block := pack.CandidateDecay
	if !block.Available || block.Result == nil {
		return nil
	}

	citations := []string{
		"candidate_decay.result.baseline_rate",
		"candidate_decay.result.decay_rate_per_day",
	}
	claim := fmt.Sprintf("Offer acceptance decays at %.4f per day of decision latency from a %.1f%% baseline.",
		block.Result.DecayRatePerDay, block.Result.BaselineRate*100)

	if block.Result.DecayStartDay != nil {
		citations = append(citations, "candidate_decay.result.decay_start_day")
		claim = fmt.Sprintf("Offer acceptance drops materially once decisions take %d days or longer.", *block.Result.DecayStartDay)
	}

	return &Insight{
		ID:        "det-offer-decay",
		Title:     "Acceptance decay with decision latency",
		Severity:  SeverityP1,
		Claim:     claim,
		Rationale: "Every extra day between final interview and decision costs acceptance probability.",
		Actions: []string{
			"Set a decision deadline inside the pre-decay window.",
		},
		Citations: citations,
	}
}

func cohortGapInsight(pack *FactPack) *Insight {
	block := pack.CohortComparison
	if !block.Available || block.Result == nil {
		return nil
	}

	return &Insight{
		ID:       "det-cohort-gap",
		Title:    "Fast versus slow hire gap",
		Severity: SeverityP2,
		Claim: fmt.Sprintf("The slowest hire quartile takes %.1f more days than the fastest (median %.1f vs %.1f).",
			block.Result.GapDays, block.Result.Slow.MedianTimeToFillDays, block.Result.Fast.MedianTimeToFillDays),
		Rationale: "The factor deltas between quartiles point at what actually speeds hires up.",
		Actions: []string{
			"Adopt the high-impact factors of the fast cohort on slow requisitions.",
		},
		Citations: []string{
			"cohort_comparison.result.gap_days",
			"cohort_comparison.result.fast.median_time_to_fill_days",
			"cohort_comparison.result.slow.median_time_to_fill_days",
		},
	}
}

func zombieInsight(pack *FactPack) *Insight {
	zombies := pack.ContributingReqs.Zombie
	if len(zombies) == 0 {
		return nil
	}

	severity := SeverityP1
	if len(zombies) >= 5 {
		severity = SeverityP0
	}

	return &Insight{
		ID:        "det-zombie-reqs",
		Title:     "Zombie requisitions",
		Severity:  severity,
		Claim:     fmt.Sprintf("%d open requisitions have had no activity for 30 days or more.", len(zombies)),
		Rationale: "Requisitions without activity consume headcount budget and distort pipeline metrics.",
		Actions: []string{
			"Close or re-justify each zombie requisition.",
			"Reassign owners for requisitions whose recruiter has moved on.",
		},
		Citations: []string{
			"contributing_reqs.zombie",
		},
	}
}

func stageTimingInsight(pack *FactPack) *Insight {
	if pack.StageTiming.Available {
		return nil
	}

	return &Insight{
		ID:        "det-stage-timing",
		Title:     "Stage timing unavailable",
		Severity:  SeverityP2,
		Claim:     "Stage duration analysis is unavailable because the event history lacks stage-change transitions.",
		Rationale: "Without from/to stage transitions, bottleneck stages cannot be measured reliably.",
		Actions: []string{
			"Enable stage-transition tracking in the applicant tracking system.",
		},
		Citations: []string{
			"stage_timing.capability",
			"stage_timing.available",
		},
	}
}

func loadInsight(pack *FactPack) *Insight {
	block := pack.LoadAnalysis
	if !block.Available || block.Result == nil {
		return nil
	}
	if !strings.HasPrefix(block.Result.Relationship, "strong") {
		return nil
	}

	return &Insight{
		ID:       "det-recruiter-load",
		Title:    "Recruiter workload drives hire speed",
		Severity: SeverityP1,
		Claim: fmt.Sprintf("Time to fill changes %.1f%% between the lightest and heaviest recruiter load buckets.",
			block.Result.PercentChange),
		Rationale: "A strong load correlation means requisition assignment, not process, is the lever.",
		Actions: []string{
			"Rebalance requisitions away from overloaded recruiters.",
		},
		Citations: []string{
			"load_analysis.result.relationship",
			"load_analysis.result.percent_change",
		},
	}
}
