// Package analytics holds the pure computation engines behind the fact
// pack: outcome-rate decay, cohort comparison, and workload correlation.
// Every function is synchronous, side-effect free, and takes its
// thresholds as explicit input.
package analytics

import (
	"math"

	"github.com/pipeline-velocity/backend/internal/confidence"
	"github.com/pipeline-velocity/backend/internal/pipeline"
)

// DecayBucket is one elapsed-time slice of an outcome-rate curve.
type DecayBucket struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// DecayResult describes how an outcome rate declines as elapsed time in
// process grows.
type DecayResult struct {
	Buckets         []DecayBucket `json:"buckets"`
	BaselineRate    float64       `json:"baseline_rate"`
	DecayStartDay   *int          `json:"decay_start_day,omitempty"`
	DecayRatePerDay float64       `json:"decay_rate_per_day"`
	SampleSize      int           `json:"sample_size"`
	EmptyBuckets    int           `json:"empty_buckets"`
}

type bucketSpec struct {
	label    string
	startDay int
	endDay   int // inclusive; -1 means open ended
	midDay   float64
}

var offerBuckets = []bucketSpec{
	{"0-3d", 0, 3, 1.5},
	{"4-7d", 4, 7, 5.5},
	{"8-14d", 8, 14, 11},
	{"15-30d", 15, 30, 22.5},
	{"31d+", 31, -1, 38},
}

var requisitionBuckets = []bucketSpec{
	{"0-30d", 0, 30, 15},
	{"31-60d", 31, 60, 45.5},
	{"61-90d", 61, 90, 75.5},
	{"91d+", 91, -1, 105},
}

// A bucket counts as decayed once its rate falls this far under baseline.
const materialDropThreshold = 0.15

// AnalyzeOfferDecay buckets decided offers by decision latency and tracks
// the acceptance rate across buckets. Undecided offers carry no outcome
// and are skipped.
func AnalyzeOfferDecay(candidates []pipeline.Candidate) DecayResult {
	type outcome struct {
		days     int
		accepted bool
	}

	var outcomes []outcome
	for _, c := range candidates {
		if !c.HasOffer() {
			continue
		}
		decided := c.OfferDecidedAt()
		if decided == nil {
			continue
		}
		days := int(decided.Sub(*c.OfferExtendedAt).Hours() / 24)
		if days < 0 {
			continue
		}
		outcomes = append(outcomes, outcome{days: days, accepted: c.OfferAcceptedAt != nil})
	}

	counts := make([]int, len(offerBuckets))
	positives := make([]int, len(offerBuckets))
	for _, o := range outcomes {
		idx := bucketIndex(offerBuckets, o.days)
		counts[idx]++
		if o.accepted {
			positives[idx]++
		}
	}

	accepted := 0
	for _, o := range outcomes {
		if o.accepted {
			accepted++
		}
	}

	return buildDecayResult(offerBuckets, counts, positives, len(outcomes), accepted)
}

// AnalyzeRequisitionDecay buckets closed requisitions by how long they
// stayed open and tracks the fill rate across buckets.
func AnalyzeRequisitionDecay(reqs []pipeline.Requisition) DecayResult {
	counts := make([]int, len(requisitionBuckets))
	positives := make([]int, len(requisitionBuckets))

	total := 0
	filled := 0
	for _, r := range reqs {
		closedAt := r.ClosedAt
		if r.FilledAt != nil {
			closedAt = r.FilledAt
		}
		if closedAt == nil {
			continue
		}
		days := int(closedAt.Sub(r.OpenedAt).Hours() / 24)
		if days < 0 {
			continue
		}
		idx := bucketIndex(requisitionBuckets, days)
		counts[idx]++
		total++
		if r.Status == pipeline.RequisitionFilled || r.FilledAt != nil {
			positives[idx]++
			filled++
		}
	}

	return buildDecayResult(requisitionBuckets, counts, positives, total, filled)
}

func bucketIndex(specs []bucketSpec, days int) int {
	for i, s := range specs {
		if s.endDay < 0 || days <= s.endDay {
			return i
		}
	}
	return len(specs) - 1
}

func buildDecayResult(specs []bucketSpec, counts, positives []int, sampleSize, totalPositive int) DecayResult {
	res := DecayResult{SampleSize: sampleSize}
	if sampleSize == 0 {
		res.EmptyBuckets = len(specs)
		return res
	}

	res.BaselineRate = confidence.RoundRate(float64(totalPositive)/float64(sampleSize), 3)

	var xs, ys []float64
	for i, s := range specs {
		if counts[i] == 0 {
			// Zero-count buckets are excluded from the curve but still
			// count against data quality.
			res.EmptyBuckets++
			continue
		}
		rate := confidence.RoundRate(float64(positives[i])/float64(counts[i]), 3)
		res.Buckets = append(res.Buckets, DecayBucket{
			Label: s.label,
			Count: counts[i],
			Rate:  rate,
		})
		xs = append(xs, s.midDay)
		ys = append(ys, rate)

		if res.DecayStartDay == nil && res.BaselineRate-rate >= materialDropThreshold {
			start := s.startDay
			res.DecayStartDay = &start
		}
	}

	res.DecayRatePerDay = roundTo(slope(xs, ys), 5)
	return res
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
