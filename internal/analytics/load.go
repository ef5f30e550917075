package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/pipeline-velocity/backend/internal/pipeline"
)

// LoadBucket groups hires by how many requisitions the owning recruiter
// had open concurrently when the hire landed.
type LoadBucket struct {
	Label                string  `json:"label"`
	Hires                int     `json:"hires"`
	MedianTimeToFillDays float64 `json:"median_time_to_fill_days"`
	AvgTimeToFillDays    float64 `json:"avg_time_to_fill_days"`
}

type LoadAnalysis struct {
	Buckets        []LoadBucket `json:"buckets"`
	Relationship   string       `json:"relationship"`
	PercentChange  float64      `json:"percent_change"`
	QualifyingHires int         `json:"qualifying_hires"`
}

// LoadHire is one completed hire annotated with when and by whom.
type LoadHire struct {
	RecruiterID    string
	HiredAt        time.Time
	TimeToFillDays int
}

type loadBucketSpec struct {
	label string
	min   int
	max   int // inclusive; -1 open ended
}

var loadBuckets = []loadBucketSpec{
	{"1-5", 1, 5},
	{"6-10", 6, 10},
	{"11-15", 11, 15},
	{"16+", 16, -1},
}

const (
	relFlat = "flat"
)

// AnalyzeLoad correlates recruiter concurrent workload with hire speed.
// Buckets under minBucketHires are dropped; under minTotalHires overall
// the whole analysis is withheld with a gating reason.
func AnalyzeLoad(reqs []pipeline.Requisition, hires []LoadHire, minBucketHires, minTotalHires int) (*LoadAnalysis, string) {
	if len(hires) < minTotalHires {
		return nil, fmt.Sprintf("need at least %d completed hires for load analysis, have %d", minTotalHires, len(hires))
	}

	ttfByBucket := make([][]float64, len(loadBuckets))
	qualifying := 0
	for _, h := range hires {
		if h.TimeToFillDays < 0 {
			continue
		}
		load := ConcurrentLoad(reqs, h.RecruiterID, h.HiredAt)
		if load < 1 {
			continue
		}
		idx := loadBucketIndex(load)
		ttfByBucket[idx] = append(ttfByBucket[idx], float64(h.TimeToFillDays))
		qualifying++
	}

	if qualifying < minTotalHires {
		return nil, fmt.Sprintf("need at least %d qualifying hires for load analysis, have %d", minTotalHires, qualifying)
	}

	analysis := &LoadAnalysis{QualifyingHires: qualifying, Relationship: relFlat}
	for i, spec := range loadBuckets {
		if len(ttfByBucket[i]) < minBucketHires {
			continue
		}
		analysis.Buckets = append(analysis.Buckets, LoadBucket{
			Label:                spec.label,
			Hires:                len(ttfByBucket[i]),
			MedianTimeToFillDays: roundTo(median(ttfByBucket[i]), 1),
			AvgTimeToFillDays:    roundTo(mean(ttfByBucket[i]), 1),
		})
	}

	if len(analysis.Buckets) >= 2 {
		first := analysis.Buckets[0].MedianTimeToFillDays
		last := analysis.Buckets[len(analysis.Buckets)-1].MedianTimeToFillDays
		if first > 0 {
			pct := (last - first) / first * 100
			analysis.PercentChange = roundTo(pct, 1)
			analysis.Relationship = classifyRelationship(pct)
		}
	}

	return analysis, ""
}

// ConcurrentLoad counts requisitions the recruiter owned that were open at
// the given date: opened on or before it and either still open or closed
// on or after it.
func ConcurrentLoad(reqs []pipeline.Requisition, recruiterID string, at time.Time) int {
	load := 0
	for _, r := range reqs {
		if r.RecruiterID != recruiterID {
			continue
		}
		if r.OpenedAt.After(at) {
			continue
		}
		closedAt := r.ClosedAt
		if closedAt == nil && r.FilledAt != nil {
			closedAt = r.FilledAt
		}
		if closedAt == nil || !closedAt.Before(at) {
			load++
		}
	}
	return load
}

func loadBucketIndex(load int) int {
	for i, s := range loadBuckets {
		if s.max < 0 || load <= s.max {
			return i
		}
	}
	return len(loadBuckets) - 1
}

// classifyRelationship grades the change from the lightest to the heaviest
// populated bucket: over 50 percent is strong, over 30 moderate, and the
// sign says whether hires slow down or speed up under load.
func classifyRelationship(pct float64) string {
	abs := math.Abs(pct)
	var strength string
	switch {
	case abs > 50:
		strength = "strong"
	case abs > 30:
		strength = "moderate"
	default:
		return relFlat
	}

	if pct > 0 {
		return strength + "_slowdown"
	}
	return strength + "_speedup"
}
