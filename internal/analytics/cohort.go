package analytics

import (
	"fmt"
	"math"
	"sort"
)

// Hire is one completed hire with the attributes the cohort comparison
// contrasts. Built by the fact-pack builder from raw records; carries no
// identifiers or free text.
type Hire struct {
	TimeToFillDays int
	Referral       bool
	PipelineDepth  int
	Interviews     int
	RecruiterID    string
}

// CohortStats aggregates one quartile of hires.
type CohortStats struct {
	Count                int     `json:"count"`
	AvgTimeToFillDays    float64 `json:"avg_time_to_fill_days"`
	MedianTimeToFillDays float64 `json:"median_time_to_fill_days"`
	ReferralRate         float64 `json:"referral_rate"`
	AvgPipelineDepth     float64 `json:"avg_pipeline_depth"`
	InterviewsPerHire    float64 `json:"interviews_per_hire"`
}

// FactorDelta contrasts one comparison factor between the fast and slow
// cohorts.
type FactorDelta struct {
	Factor    string  `json:"factor"`
	FastValue float64 `json:"fast_value"`
	SlowValue float64 `json:"slow_value"`
	Delta     float64 `json:"delta"`
	Impact    string  `json:"impact"`
}

type CohortComparison struct {
	Fast       CohortStats   `json:"fast"`
	Slow       CohortStats   `json:"slow"`
	GapDays    float64       `json:"gap_days"`
	Factors    []FactorDelta `json:"factors"`
	SampleSize int           `json:"sample_size"`
}

const (
	impactHigh   = "high"
	impactMedium = "medium"
	impactLow    = "low"
)

// CompareCohorts splits completed hires into the fastest and slowest
// time-to-fill quartiles and contrasts them factor by factor. Requires at
// least twice minHires total; below that it returns a gating reason.
func CompareCohorts(hires []Hire, minHires int) (*CohortComparison, string) {
	if len(hires) < 2*minHires {
		return nil, fmt.Sprintf("need at least %d completed hires for cohort comparison, have %d", 2*minHires, len(hires))
	}

	sorted := make([]Hire, len(hires))
	copy(sorted, hires)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TimeToFillDays < sorted[j].TimeToFillDays
	})

	quartile := len(sorted) / 4
	if quartile < 1 {
		quartile = 1
	}

	fast := sorted[:quartile]
	slow := sorted[len(sorted)-quartile:]

	cmp := &CohortComparison{
		Fast:       cohortStats(fast),
		Slow:       cohortStats(slow),
		SampleSize: len(hires),
	}
	cmp.GapDays = roundTo(cmp.Slow.MedianTimeToFillDays-cmp.Fast.MedianTimeToFillDays, 1)

	cmp.Factors = []FactorDelta{
		factorDelta("referral_rate", cmp.Fast.ReferralRate, cmp.Slow.ReferralRate),
		factorDelta("pipeline_depth", cmp.Fast.AvgPipelineDepth, cmp.Slow.AvgPipelineDepth),
		factorDelta("interviews_per_hire", cmp.Fast.InterviewsPerHire, cmp.Slow.InterviewsPerHire),
	}

	return cmp, ""
}

func cohortStats(hires []Hire) CohortStats {
	ttf := make([]float64, 0, len(hires))
	referrals := 0
	var depthSum, interviewSum float64

	for _, h := range hires {
		ttf = append(ttf, float64(h.TimeToFillDays))
		if h.Referral {
			referrals++
		}
		depthSum += float64(h.PipelineDepth)
		interviewSum += float64(h.Interviews)
	}

	n := float64(len(hires))
	return CohortStats{
		Count:                len(hires),
		AvgTimeToFillDays:    roundTo(mean(ttf), 1),
		MedianTimeToFillDays: roundTo(median(ttf), 1),
		ReferralRate:         roundTo(float64(referrals)/n, 3),
		AvgPipelineDepth:     roundTo(depthSum/n, 1),
		InterviewsPerHire:    roundTo(interviewSum/n, 1),
	}
}

// factorDelta classifies the gap between cohorts by its magnitude relative
// to the slow cohort's value: over half is high impact, over a quarter
// medium, anything else low.
func factorDelta(name string, fastValue, slowValue float64) FactorDelta {
	delta := roundTo(fastValue-slowValue, 3)

	base := math.Abs(slowValue)
	if base == 0 {
		base = math.Abs(fastValue)
	}

	impact := impactLow
	if base > 0 {
		rel := math.Abs(delta) / base
		switch {
		case rel > 0.5:
			impact = impactHigh
		case rel > 0.25:
			impact = impactMedium
		}
	}

	return FactorDelta{
		Factor:    name,
		FastValue: fastValue,
		SlowValue: slowValue,
		Delta:     delta,
		Impact:    impact,
	}
}
