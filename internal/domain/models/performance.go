package models

import "time"

// SourcePerformance is the rolling reliability record for one predictor on one
// (instrument, horizon) pair. Created lazily on the first resolved outcome,
// never deleted, only decayed.
type SourcePerformance struct {
	SourceID       string    `json:"source_id"`
	InstrumentID   string    `json:"instrument_id"`
	Horizon        string    `json:"horizon"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	Total          int       `json:"total"`
	RecentAccuracy float64   `json:"recent_accuracy"` // exponentially weighted
	Recent         []bool    `json:"recent,omitempty"` // last-N outcome window backing the EMA
	UpdatedAt      time.Time `json:"updated_at"`
}

// Outcome is one resolved prediction result fed back by the external evaluator.
type Outcome struct {
	SourceID     string    `json:"source_id"`
	InstrumentID string    `json:"instrument_id"`
	Horizon      string    `json:"horizon"`
	WasCorrect   bool      `json:"was_correct"`
	ResolvedAt   time.Time `json:"resolved_at"`
}
