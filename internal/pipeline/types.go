// Package pipeline defines the raw recruiting records supplied by the
// upstream ingestion layer. These structs carry personal data (names,
// emails, titles); nothing downstream of the fact-pack builder may copy
// their free-text fields.
package pipeline

import "time"

type RequisitionStatus string

const (
	RequisitionOpen   RequisitionStatus = "open"
	RequisitionClosed RequisitionStatus = "closed"
	RequisitionFilled RequisitionStatus = "filled"
)

type Requisition struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Department     string            `json:"department"`
	RecruiterID    string            `json:"recruiter_id"`
	Status         RequisitionStatus `json:"status"`
	OpenedAt       time.Time         `json:"opened_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
	FilledAt       *time.Time        `json:"filled_at,omitempty"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

type Candidate struct {
	ID              string     `json:"id"`
	RequisitionID   string     `json:"requisition_id"`
	Name            string     `json:"name,omitempty"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Source          string     `json:"source,omitempty"`
	CurrentStage    string     `json:"current_stage,omitempty"`
	StageEnteredAt  *time.Time `json:"stage_entered_at,omitempty"`
	AppliedAt       time.Time  `json:"applied_at"`
	InterviewCount  int        `json:"interview_count"`
	OfferExtendedAt *time.Time `json:"offer_extended_at,omitempty"`
	OfferAcceptedAt *time.Time `json:"offer_accepted_at,omitempty"`
	OfferDeclinedAt *time.Time `json:"offer_declined_at,omitempty"`
	HiredAt         *time.Time `json:"hired_at,omitempty"`
}

const SourceReferral = "referral"

type EventType string

const (
	EventStageChange  EventType = "stage_change"
	EventStageEntered EventType = "stage_entered"
	EventNote         EventType = "note"
	EventActivity     EventType = "activity"
)

type Event struct {
	ID            string    `json:"id"`
	RequisitionID string    `json:"requisition_id"`
	CandidateID   string    `json:"candidate_id,omitempty"`
	Type          EventType `json:"type"`
	FromStage     string    `json:"from_stage,omitempty"`
	ToStage       string    `json:"to_stage,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Dataset is the full analysis input: raw records plus the window they
// should be filtered to.
type Dataset struct {
	Requisitions []Requisition `json:"requisitions"`
	Candidates   []Candidate   `json:"candidates"`
	Events       []Event       `json:"events"`
	Range        DateRange     `json:"date_range"`
}

// HasOffer reports whether an offer was ever extended, regardless of the
// eventual decision.
func (c Candidate) HasOffer() bool {
	return c.OfferExtendedAt != nil
}

// OfferDecidedAt returns the accept or decline timestamp, whichever is set.
func (c Candidate) OfferDecidedAt() *time.Time {
	if c.OfferAcceptedAt != nil {
		return c.OfferAcceptedAt
	}
	return c.OfferDeclinedAt
}

// TimeToFillDays computes whole elapsed days from the requisition opening
// to the hire, or -1 when either side is missing or inverted.
func TimeToFillDays(req *Requisition, c *Candidate) int {
	if req == nil || c == nil || c.HiredAt == nil {
		return -1
	}
	d := int(c.HiredAt.Sub(req.OpenedAt).Hours() / 24)
	if d < 0 {
		return -1
	}
	return d
}
