// Package confidence implements sample-size gating: safe rate arithmetic,
// confidence grading, and detection of how much stage-timing signal the
// input data can support.
package confidence

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

// Level is a sample-size-driven reliability grade.
type Level string

const (
	Insufficient Level = "INSUFFICIENT"
	Low          Level = "LOW"
	Med          Level = "MED"
	High         Level = "HIGH"
)

// ForSample grades a sample of size n against a threshold t:
// n < t INSUFFICIENT, [t, 1.5t) LOW, [1.5t, 2t) MED, >= 2t HIGH.
func ForSample(n, threshold int) Level {
	if threshold <= 0 {
		return High
	}
	switch {
	case n < threshold:
		return Insufficient
	case float64(n) < 1.5*float64(threshold):
		return Low
	case n < 2*threshold:
		return Med
	default:
		return High
	}
}

// Rate is the result of a guarded division. Value is nil when the rate is
// undefined; Display is what a consumer may show verbatim.
type Rate struct {
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
	Invalid bool     `json:"invalid,omitempty"`
}

const (
	displayEmpty        = "—"
	displayInvalid      = "Invalid data"
	displayInsufficient = "Insufficient data"
)

// SafeRate divides numerator by denominator without ever fabricating a
// number. 0/0 is "no data", not 0% and not 100%. A positive numerator over
// a zero denominator is corrupt input and is logged.
func SafeRate(numerator, denominator float64, asPercent bool) Rate {
	if denominator == 0 {
		if numerator == 0 {
			return Rate{Display: displayEmpty}
		}
		logger.Warn("invalid_denominator",
			zap.Float64("numerator", numerator),
			zap.Float64("denominator", denominator),
		)
		return Rate{Display: displayInvalid, Invalid: true}
	}

	v := numerator / denominator
	r := Rate{Value: &v}
	if asPercent {
		r.Display = fmt.Sprintf("%.1f%%", v*100)
	} else {
		r.Display = fmt.Sprintf("%.2f", v)
	}
	return r
}

type FormatOptions struct {
	MinDenominator   int
	Decimals         int
	ShowInsufficient bool
}

// FormatRate renders numerator/denominator as a percentage, gated on a
// minimum denominator.
func FormatRate(numerator, denominator float64, opts FormatOptions) string {
	if int(denominator) < opts.MinDenominator {
		if opts.ShowInsufficient {
			return displayInsufficient
		}
		return displayEmpty
	}

	r := SafeRate(numerator, denominator, true)
	if r.Value == nil {
		return r.Display
	}

	decimals := opts.Decimals
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, *r.Value*100)
}

// StageTimingCapability describes how stage durations can be derived from
// the input, from best to none.
type StageTimingCapability string

const (
	CapabilityNone          StageTimingCapability = "NONE"
	CapabilityTimestampOnly StageTimingCapability = "TIMESTAMP_ONLY"
	CapabilitySnapshotDiff  StageTimingCapability = "SNAPSHOT_DIFF"
	CapabilityPointInTime   StageTimingCapability = "POINT_IN_TIME"
)

const minTimingEvents = 10

// DetectStageTimingCapability inspects events and candidates for usable
// stage-timing signal. Stage-change events carrying both endpoints give
// full snapshot diffing; entry-only events give point-in-time timing;
// candidates that only know when they entered their current stage give
// timestamp-only timing.
func DetectStageTimingCapability(events []pipeline.Event, candidates []pipeline.Candidate) StageTimingCapability {
	diffEvents := 0
	entryEvents := 0
	for _, ev := range events {
		if ev.FromStage != "" && ev.ToStage != "" {
			diffEvents++
		} else if ev.ToStage != "" && !ev.OccurredAt.IsZero() {
			entryEvents++
		}
	}

	if diffEvents >= minTimingEvents {
		return CapabilitySnapshotDiff
	}
	if entryEvents >= minTimingEvents {
		return CapabilityPointInTime
	}

	for _, c := range candidates {
		if c.StageEnteredAt != nil {
			return CapabilityTimestampOnly
		}
	}

	return CapabilityNone
}

// RoundRate clamps and rounds a rate into [0,1] with the given decimals.
func RoundRate(v float64, decimals int) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
