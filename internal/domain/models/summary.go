package models

import "time"

// HumanSummary is the explainer's rendering of a Decision for display.
type HumanSummary struct {
	InstrumentID string    `json:"instrument_id"`
	Horizon      string    `json:"horizon"`
	Verdict      Verdict   `json:"verdict"`
	Headline     string    `json:"headline"`
	Reasons      []string  `json:"reasons"`
	Conflicts    []string  `json:"conflicts,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// EngineStatus summarizes the decision population for monitoring.
type EngineStatus struct {
	TotalDecisions   int            `json:"total_decisions"`
	Locked           int            `json:"locked"`
	Reevaluable      int            `json:"reevaluable"`
	PendingOverrides int            `json:"pending_overrides"`
	Contested        int            `json:"contested"`
	DecisionsByAge   map[string]int `json:"decisions_by_age"`
	VerdictBreakdown map[string]int `json:"verdict_breakdown"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// SourceAccuracy is one row of the accuracy report.
type SourceAccuracy struct {
	SourceID       string  `json:"source_id"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Total          int     `json:"total"`
	RecentAccuracy float64 `json:"recent_accuracy"`
	TrustWeight    float64 `json:"trust_weight"`
}
