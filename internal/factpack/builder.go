package factpack

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/analytics"
	"github.com/pipeline-velocity/backend/internal/confidence"
	"github.com/pipeline-velocity/backend/internal/pipeline"
	"github.com/pipeline-velocity/backend/pkg/config"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

// Builder assembles fact packs. All thresholds come in through the
// config value; the builder holds no other state.
type Builder struct {
	cfg config.AnalysisConfig
}

func NewBuilder(cfg config.AnalysisConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build computes every metric from the raw records, gates the derived
// analyses on their sample sizes, redacts identifiers, runs the
// deterministic generator, and seals the pack.
func (b *Builder) Build(ds pipeline.Dataset) (*FactPack, error) {
	reqs, candidates, events := filterToRange(ds)

	reqByID := make(map[string]*pipeline.Requisition, len(reqs))
	for i := range reqs {
		reqByID[reqs[i].ID] = &reqs[i]
	}

	depthByReq := make(map[string]int)
	for _, c := range candidates {
		depthByReq[c.RequisitionID]++
	}

	hires := collectHires(reqByID, depthByReq, candidates)
	loadHires := collectLoadHires(reqByID, candidates)

	decidedOffers := 0
	acceptedOffers := 0
	totalOffers := 0
	for _, c := range candidates {
		if !c.HasOffer() {
			continue
		}
		totalOffers++
		if c.OfferDecidedAt() != nil {
			decidedOffers++
		}
		if c.OfferAcceptedAt != nil {
			acceptedOffers++
		}
	}

	pack := &FactPack{
		SampleSizes: SampleSizes{
			Requisitions: len(reqs),
			Candidates:   len(candidates),
			Offers:       totalOffers,
			Hires:        len(hires),
			Events:       len(events),
		},
		Definitions: definitions(),
	}

	pack.KPIs = b.buildKPIs(reqs, candidates, hires, acceptedOffers, decidedOffers)
	pack.StageTiming = b.buildStageTiming(events, candidates)
	pack.CandidateDecay = b.buildCandidateDecay(candidates, decidedOffers)
	pack.ReqDecay = b.buildReqDecay(reqs)
	pack.CohortComparison = b.buildCohortBlock(hires)
	pack.LoadAnalysis = b.buildLoadBlock(reqs, loadHires)
	pack.BottleneckStages = b.buildBottlenecks(events)
	pack.ContributingReqs = b.buildContributingReqs(reqs, ds.Range.End)

	quality := b.dataQuality(totalOffers, len(reqs), len(hires))
	pack.Metadata = Metadata{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		RangeStart:    ds.Range.Start,
		RangeEnd:      ds.Range.End,
		DataQuality:   string(quality),
	}

	pack.DeterministicInsights = GenerateDeterministicSummary(pack, b.cfg)

	if err := pack.seal(); err != nil {
		return nil, err
	}

	logger.Debug("Fact pack built",
		zap.String("data_quality", pack.Metadata.DataQuality),
		zap.Int("requisitions", pack.SampleSizes.Requisitions),
		zap.Int("offers", pack.SampleSizes.Offers),
		zap.Int("hires", pack.SampleSizes.Hires),
	)

	return pack, nil
}

// dataQuality grades the pack by how many of the three sample groups
// cleared their thresholds: all three HIGH, two MED, one LOW, none
// INSUFFICIENT.
func (b *Builder) dataQuality(offers, requisitions, hires int) confidence.Level {
	cleared := 0
	if offers >= b.cfg.MinOffers {
		cleared++
	}
	if requisitions >= b.cfg.MinRequisitions {
		cleared++
	}
	if hires >= 2*b.cfg.MinHiresForCohort {
		cleared++
	}

	switch cleared {
	case 3:
		return confidence.High
	case 2:
		return confidence.Med
	case 1:
		return confidence.Low
	default:
		return confidence.Insufficient
	}
}

func (b *Builder) buildKPIs(reqs []pipeline.Requisition, candidates []pipeline.Candidate, hires []analytics.Hire, accepted, decided int) KPIs {
	kpis := KPIs{}

	if len(hires) > 0 {
		ttf := make([]float64, 0, len(hires))
		for _, h := range hires {
			ttf = append(ttf, float64(h.TimeToFillDays))
		}
		sort.Float64s(ttf)
		med := medianSorted(ttf)
		avg := meanOf(ttf)
		kpis.MedianTimeToFillDays = &med
		kpis.AvgTimeToFillDays = &avg
	}

	rate := confidence.SafeRate(float64(accepted), float64(decided), true)
	kpis.OfferAcceptanceRate = rate.Value
	kpis.OfferAcceptanceText = confidence.FormatRate(float64(accepted), float64(decided), confidence.FormatOptions{
		MinDenominator:   b.cfg.MinOffers,
		Decimals:         1,
		ShowInsufficient: true,
	})

	referrals := 0
	for _, c := range candidates {
		if c.Source == pipeline.SourceReferral {
			referrals++
		}
	}
	if len(candidates) > 0 {
		rr := confidence.RoundRate(float64(referrals)/float64(len(candidates)), 3)
		kpis.ReferralRate = &rr
	}

	open := 0
	for _, r := range reqs {
		if r.Status == pipeline.RequisitionOpen {
			open++
		}
	}
	kpis.OpenRequisitions = open

	if len(reqs) > 0 {
		kpis.AvgPipelineDepth = roundTo1(float64(len(candidates)) / float64(len(reqs)))
	}

	return kpis
}

func (b *Builder) buildStageTiming(events []pipeline.Event, candidates []pipeline.Candidate) StageTiming {
	capability := confidence.DetectStageTimingCapability(events, candidates)

	diffEvents := 0
	for _, ev := range events {
		if ev.FromStage != "" && ev.ToStage != "" {
			diffEvents++
		}
	}

	return StageTiming{
		Capability: string(capability),
		Available:  capability == confidence.CapabilitySnapshotDiff,
		Confidence: confidence.ForSample(diffEvents, 10),
	}
}

func (b *Builder) buildCandidateDecay(candidates []pipeline.Candidate, decidedOffers int) DecayBlock {
	if decidedOffers < b.cfg.MinOffers {
		return DecayBlock{
			Available:    false,
			GatingReason: fmt.Sprintf("need at least %d decided offers for decay analysis, have %d", b.cfg.MinOffers, decidedOffers),
		}
	}

	result := analytics.AnalyzeOfferDecay(candidates)
	return DecayBlock{
		Available:  true,
		Confidence: confidence.ForSample(result.SampleSize, b.cfg.MinOffers),
		Result:     &result,
	}
}

func (b *Builder) buildReqDecay(reqs []pipeline.Requisition) DecayBlock {
	closed := 0
	for _, r := range reqs {
		if r.ClosedAt != nil || r.FilledAt != nil {
			closed++
		}
	}

	if closed < b.cfg.MinRequisitions {
		return DecayBlock{
			Available:    false,
			GatingReason: fmt.Sprintf("need at least %d closed requisitions for decay analysis, have %d", b.cfg.MinRequisitions, closed),
		}
	}

	result := analytics.AnalyzeRequisitionDecay(reqs)
	return DecayBlock{
		Available:  true,
		Confidence: confidence.ForSample(result.SampleSize, b.cfg.MinRequisitions),
		Result:     &result,
	}
}

func (b *Builder) buildCohortBlock(hires []analytics.Hire) CohortBlock {
	cmp, reason := analytics.CompareCohorts(hires, b.cfg.MinHiresForCohort)
	if cmp == nil {
		return CohortBlock{Available: false, GatingReason: reason}
	}
	return CohortBlock{
		Available:  true,
		Confidence: confidence.ForSample(cmp.SampleSize, 2*b.cfg.MinHiresForCohort),
		Result:     cmp,
	}
}

func (b *Builder) buildLoadBlock(reqs []pipeline.Requisition, hires []analytics.LoadHire) LoadBlock {
	analysis, reason := analytics.AnalyzeLoad(reqs, hires, b.cfg.MinLoadBucketHires, b.cfg.MinLoadTotalHires)
	if analysis == nil {
		return LoadBlock{Available: false, GatingReason: reason}
	}
	return LoadBlock{Available: true, Result: analysis}
}

// buildBottlenecks measures days spent in each stage from paired
// stage-change events and keeps the five slowest stages with at least
// MinStageSamples measurements. Stage labels come from raw input and go
// through the same sanitizer as identifiers.
func (b *Builder) buildBottlenecks(events []pipeline.Event) []BottleneckStage {
	byCandidate := make(map[string][]pipeline.Event)
	for _, ev := range events {
		if ev.Type != pipeline.EventStageChange && ev.Type != pipeline.EventStageEntered {
			continue
		}
		if ev.CandidateID == "" || ev.ToStage == "" {
			continue
		}
		byCandidate[ev.CandidateID] = append(byCandidate[ev.CandidateID], ev)
	}

	durations := make(map[string][]float64)
	for _, evs := range byCandidate {
		sort.Slice(evs, func(i, j int) bool { return evs[i].OccurredAt.Before(evs[j].OccurredAt) })
		for i := 0; i+1 < len(evs); i++ {
			entered := evs[i]
			left := evs[i+1]
			if left.FromStage != "" && left.FromStage != entered.ToStage {
				continue
			}
			days := left.OccurredAt.Sub(entered.OccurredAt).Hours() / 24
			if days < 0 {
				continue
			}
			durations[entered.ToStage] = append(durations[entered.ToStage], days)
		}
	}

	var stages []BottleneckStage
	for stage, ds := range durations {
		if len(ds) < b.cfg.MinStageSamples {
			continue
		}
		stages = append(stages, BottleneckStage{
			Stage:       SanitizeID(stage),
			AvgDays:     roundTo1(meanOf(ds)),
			SampleCount: len(ds),
		})
	}

	sort.Slice(stages, func(i, j int) bool {
		if stages[i].AvgDays != stages[j].AvgDays {
			return stages[i].AvgDays > stages[j].AvgDays
		}
		return stages[i].Stage < stages[j].Stage
	})

	if len(stages) > 5 {
		stages = stages[:5]
	}
	return stages
}

func (b *Builder) buildContributingReqs(reqs []pipeline.Requisition, asOf time.Time) ContributingReqs {
	out := ContributingReqs{
		Stalled:  []string{},
		Zombie:   []string{},
		SlowFill: []string{},
		FastFill: []string{},
	}

	for _, r := range reqs {
		closedAt := r.ClosedAt
		if closedAt == nil && r.FilledAt != nil {
			closedAt = r.FilledAt
		}

		if closedAt != nil {
			days := int(closedAt.Sub(r.OpenedAt).Hours() / 24)
			if days > b.cfg.SlowFillDays {
				out.SlowFill = append(out.SlowFill, r.ID)
			} else if days >= 0 && days <= b.cfg.FastFillDays {
				out.FastFill = append(out.FastFill, r.ID)
			}
			continue
		}

		lastActivity := r.OpenedAt
		if r.LastActivityAt != nil {
			lastActivity = *r.LastActivityAt
		}
		idle := int(asOf.Sub(lastActivity).Hours() / 24)
		switch {
		case idle >= b.cfg.ZombieDays:
			out.Zombie = append(out.Zombie, r.ID)
		case idle >= b.cfg.StalledDaysMin && idle < b.cfg.StalledDaysMax:
			out.Stalled = append(out.Stalled, r.ID)
		}
	}

	out.Stalled = sanitizeIDs(out.Stalled)
	out.Zombie = sanitizeIDs(out.Zombie)
	out.SlowFill = sanitizeIDs(out.SlowFill)
	out.FastFill = sanitizeIDs(out.FastFill)
	return out
}

// filterToRange keeps requisitions whose lifetime overlaps the window,
// their candidates, and events inside the window.
func filterToRange(ds pipeline.Dataset) ([]pipeline.Requisition, []pipeline.Candidate, []pipeline.Event) {
	var reqs []pipeline.Requisition
	kept := make(map[string]bool)
	for _, r := range ds.Requisitions {
		if r.OpenedAt.After(ds.Range.End) {
			continue
		}
		closedAt := r.ClosedAt
		if closedAt == nil && r.FilledAt != nil {
			closedAt = r.FilledAt
		}
		if closedAt != nil && closedAt.Before(ds.Range.Start) {
			continue
		}
		reqs = append(reqs, r)
		kept[r.ID] = true
	}

	var candidates []pipeline.Candidate
	for _, c := range ds.Candidates {
		if kept[c.RequisitionID] {
			candidates = append(candidates, c)
		}
	}

	var events []pipeline.Event
	for _, ev := range ds.Events {
		if ds.Range.Contains(ev.OccurredAt) {
			events = append(events, ev)
		}
	}

	return reqs, candidates, events
}

func collectHires(reqByID map[string]*pipeline.Requisition, depthByReq map[string]int, candidates []pipeline.Candidate) []analytics.Hire {
	var hires []analytics.Hire
	for _, c := range candidates {
		req := reqByID[c.RequisitionID]
		ttf := pipeline.TimeToFillDays(req, &c)
		if ttf < 0 {
			continue
		}
		hires = append(hires, analytics.Hire{
			TimeToFillDays: ttf,
			Referral:       c.Source == pipeline.SourceReferral,
			PipelineDepth:  depthByReq[c.RequisitionID],
			Interviews:     c.InterviewCount,
			RecruiterID:    req.RecruiterID,
		})
	}
	return hires
}

func collectLoadHires(reqByID map[string]*pipeline.Requisition, candidates []pipeline.Candidate) []analytics.LoadHire {
	var hires []analytics.LoadHire
	for _, c := range candidates {
		req := reqByID[c.RequisitionID]
		ttf := pipeline.TimeToFillDays(req, &c)
		if ttf < 0 {
			continue
		}
		hires = append(hires, analytics.LoadHire{
			RecruiterID:    req.RecruiterID,
			HiredAt:        *c.HiredAt,
			TimeToFillDays: ttf,
		})
	}
	return hires
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return roundTo1(sum / float64(len(values)))
}

func medianSorted(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return roundTo1((sorted[mid-1] + sorted[mid]) / 2)
	}
	return roundTo1(sorted[mid])
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
