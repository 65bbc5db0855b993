package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// Age bucket labels for the status report.
const (
	ageFresh = "under_1d"
	ageWeek  = "1d_to_7d"
	ageStale = "over_7d"
)

// StatusReporter aggregates the active decision population into a monitoring
// snapshot.
type StatusReporter struct {
	store domrepo.DecisionStore
	now   func() time.Time
}

func NewStatusReporter(store domrepo.DecisionStore) *StatusReporter {
	return &StatusReporter{store: store, now: time.Now}
}

// SetClock overrides the aging clock.
func (r *StatusReporter) SetClock(now func() time.Time) { r.now = now }

func (r *StatusReporter) Status(ctx context.Context) (*models.EngineStatus, error) {
	all, err := r.store.AllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active decisions: %w", err)
	}

	now := r.now()
	st := &models.EngineStatus{
		DecisionsByAge:   map[string]int{ageFresh: 0, ageWeek: 0, ageStale: 0},
		VerdictBreakdown: make(map[string]int),
		GeneratedAt:      now,
	}

	for _, d := range all {
		st.TotalDecisions++
		if d.Locked(now) {
			st.Locked++
		} else {
			st.Reevaluable++
		}
		if d.PendingCount > 0 {
			st.PendingOverrides++
		}
		if d.Contested {
			st.Contested++
		}
		st.VerdictBreakdown[string(d.Verdict)]++

		age := now.Sub(d.UpdatedAt)
		switch {
		case age < 24*time.Hour:
			st.DecisionsByAge[ageFresh]++
		case age < 7*24*time.Hour:
			st.DecisionsByAge[ageWeek]++
		default:
			st.DecisionsByAge[ageStale]++
		}
	}
	return st, nil
}
