package models

import "time"

// Verdict is the engine's categorical recommendation.
type Verdict string

const (
	VerdictStrongBuy Verdict = "STRONG_BUY"
	VerdictBuy       Verdict = "BUY"
	VerdictHold      Verdict = "HOLD"
	VerdictCautious  Verdict = "CAUTIOUS"
	VerdictAvoid     Verdict = "AVOID"
)

// Lock reasons recorded on a Decision when it is (re)adopted.
const (
	LockReasonNew       = "new"
	LockReasonOverride  = "confirmed_override"
	LockReasonRefreshed = "refreshed"
)

// Resolution is the resolver's output before stability rules are applied.
type Resolution struct {
	Direction  Direction `json:"direction"`
	Verdict    Verdict   `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Contested  bool      `json:"contested"`
	Reasons    []string  `json:"reasons"`
	Conflicts  []Signal  `json:"conflicts"`
}

// Decision is the active recommendation for one (instrument, horizon) pair.
// The stability manager is the only writer; LockedUntil in the future means the
// verdict can only change through the consecutive-confirmation override.
type Decision struct {
	InstrumentID string    `json:"instrument_id"`
	Horizon      string    `json:"horizon"`
	Verdict      Verdict   `json:"verdict"`
	Confidence   float64   `json:"confidence"`
	Contested    bool      `json:"contested"`
	Reasons      []string  `json:"reasons"`
	Conflicts    []Signal  `json:"conflicts"`
	LockedUntil  time.Time `json:"locked_until"` // zero means re-evaluable next cycle
	LockReason   string    `json:"lock_reason"`

	PendingVerdict Verdict `json:"pending_verdict,omitempty"`
	PendingCount   int     `json:"pending_count,omitempty"`

	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	History   []DecisionSnapshot `json:"history,omitempty"`
}

// DecisionSnapshot is an immutable archived prior decision.
type DecisionSnapshot struct {
	Verdict    Verdict   `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Contested  bool      `json:"contested"`
	LockReason string    `json:"lock_reason"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Locked reports whether the decision is still inside its hold period at now.
func (d *Decision) Locked(now time.Time) bool {
	return !d.LockedUntil.IsZero() && now.Before(d.LockedUntil)
}

// Snapshot converts the decision to its archived form.
func (d *Decision) Snapshot(now time.Time) DecisionSnapshot {
	return DecisionSnapshot{
		Verdict:    d.Verdict,
		Confidence: d.Confidence,
		Contested:  d.Contested,
		LockReason: d.LockReason,
		CreatedAt:  d.CreatedAt,
		ArchivedAt: now,
	}
}
