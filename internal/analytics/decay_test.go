package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-velocity/backend/internal/pipeline"
)

var decayBase = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func offerCandidate(extendedDay, decidedDay int, accepted bool) pipeline.Candidate {
	extended := decayBase.AddDate(0, 0, extendedDay)
	decided := decayBase.AddDate(0, 0, decidedDay)
	c := pipeline.Candidate{ID: "c", OfferExtendedAt: &extended}
	if accepted {
		c.OfferAcceptedAt = &decided
	} else {
		c.OfferDeclinedAt = &decided
	}
	return c
}

func TestAnalyzeOfferDecayEmpty(t *testing.T) {
	res := AnalyzeOfferDecay(nil)
	assert.Equal(t, 0, res.SampleSize)
	assert.Empty(t, res.Buckets)
	assert.Equal(t, len(offerBuckets), res.EmptyBuckets)
	assert.Nil(t, res.DecayStartDay)
}

func TestAnalyzeOfferDecaySkipsUndecided(t *testing.T) {
	extended := decayBase
	candidates := []pipeline.Candidate{
		{ID: "pending", OfferExtendedAt: &extended},
		{ID: "no-offer"},
		offerCandidate(0, 2, true),
	}

	res := AnalyzeOfferDecay(candidates)
	assert.Equal(t, 1, res.SampleSize)
}

func TestAnalyzeOfferDecayCurve(t *testing.T) {
	var candidates []pipeline.Candidate
	// Fast decisions all accept, slow decisions mostly decline.
	for i := 0; i < 5; i++ {
		candidates = append(candidates, offerCandidate(0, 1, true))
	}
	for i := 0; i < 5; i++ {
		candidates = append(candidates, offerCandidate(0, 20, i == 0))
	}

	res := AnalyzeOfferDecay(candidates)
	assert.Equal(t, 10, res.SampleSize)
	assert.Equal(t, 0.6, res.BaselineRate)
	assert.Equal(t, 3, res.EmptyBuckets)

	require.Len(t, res.Buckets, 2)
	assert.Equal(t, "0-3d", res.Buckets[0].Label)
	assert.Equal(t, 1.0, res.Buckets[0].Rate)
	assert.Equal(t, "15-30d", res.Buckets[1].Label)
	assert.Equal(t, 0.2, res.Buckets[1].Rate)

	// Acceptance falls more than 0.15 under baseline in the 15-30d bucket.
	require.NotNil(t, res.DecayStartDay)
	assert.Equal(t, 15, *res.DecayStartDay)

	assert.Less(t, res.DecayRatePerDay, 0.0)
	assert.InDelta(t, -0.0381, res.DecayRatePerDay, 0.0005)
}

func TestAnalyzeRequisitionDecay(t *testing.T) {
	closed := func(openedDay, closedDay int, filled bool) pipeline.Requisition {
		opened := decayBase.AddDate(0, 0, openedDay)
		done := decayBase.AddDate(0, 0, closedDay)
		r := pipeline.Requisition{ID: "r", OpenedAt: opened, Status: pipeline.RequisitionClosed, ClosedAt: &done}
		if filled {
			r.Status = pipeline.RequisitionFilled
			r.FilledAt = &done
		}
		return r
	}

	reqs := []pipeline.Requisition{
		closed(0, 20, true),
		closed(0, 22, true),
		closed(0, 25, true),
		closed(0, 70, false),
		closed(0, 72, false),
		closed(0, 75, false),
		{ID: "still-open", OpenedAt: decayBase, Status: pipeline.RequisitionOpen},
	}

	res := AnalyzeRequisitionDecay(reqs)
	assert.Equal(t, 6, res.SampleSize)
	assert.Equal(t, 0.5, res.BaselineRate)

	require.Len(t, res.Buckets, 2)
	assert.Equal(t, "0-30d", res.Buckets[0].Label)
	assert.Equal(t, 1.0, res.Buckets[0].Rate)
	assert.Equal(t, "61-90d", res.Buckets[1].Label)
	assert.Equal(t, 0.0, res.Buckets[1].Rate)

	require.NotNil(t, res.DecayStartDay)
	assert.Equal(t, 61, *res.DecayStartDay)
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{0, 0},
		{3, 0},
		{4, 1},
		{14, 2},
		{30, 3},
		{31, 4},
		{400, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketIndex(offerBuckets, tt.days), "days=%d", tt.days)
	}
}
