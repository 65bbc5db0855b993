package usecase

import (
	"context"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/repository"
	"SignalFuse/pkg/cache"
)

func TestStatusAggregatesPopulation(t *testing.T) {
	now := time.Date(2024, 10, 7, 12, 0, 0, 0, time.UTC)
	store := repository.NewRedisDecisionStore(cache.NewMemoryCache())
	ctx := context.Background()

	put := func(d *models.Decision) {
		if err := store.Put(ctx, d); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	put(&models.Decision{
		InstrumentID: "BTCUSDT", Horizon: "D1",
		Verdict: models.VerdictStrongBuy, LockedUntil: now.Add(24 * time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	})
	put(&models.Decision{
		InstrumentID: "BTCUSDT", Horizon: "D30",
		Verdict: models.VerdictAvoid, Contested: true,
		PendingVerdict: models.VerdictHold, PendingCount: 2,
		LockedUntil: now.Add(time.Hour),
		UpdatedAt:   now.Add(-3 * 24 * time.Hour),
	})
	put(&models.Decision{
		InstrumentID: "ETHUSDT", Horizon: "D1",
		Verdict:   models.VerdictHold,
		UpdatedAt: now.Add(-10 * 24 * time.Hour),
	})

	rep := NewStatusReporter(store)
	rep.SetClock(func() time.Time { return now })

	st, err := rep.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.TotalDecisions != 3 {
		t.Fatalf("total = %d, want 3", st.TotalDecisions)
	}
	if st.Locked != 2 || st.Reevaluable != 1 {
		t.Fatalf("locked=%d reevaluable=%d, want 2/1", st.Locked, st.Reevaluable)
	}
	if st.PendingOverrides != 1 || st.Contested != 1 {
		t.Fatalf("pending=%d contested=%d, want 1/1", st.PendingOverrides, st.Contested)
	}
	if st.VerdictBreakdown["STRONG_BUY"] != 1 || st.VerdictBreakdown["HOLD"] != 1 {
		t.Fatalf("unexpected verdict breakdown: %v", st.VerdictBreakdown)
	}
	if st.DecisionsByAge[ageFresh] != 1 || st.DecisionsByAge[ageWeek] != 1 || st.DecisionsByAge[ageStale] != 1 {
		t.Fatalf("unexpected age buckets: %v", st.DecisionsByAge)
	}
}

func TestStatusEmptyStore(t *testing.T) {
	rep := NewStatusReporter(repository.NewRedisDecisionStore(cache.NewMemoryCache()))

	st, err := rep.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.TotalDecisions != 0 || len(st.VerdictBreakdown) != 0 {
		t.Fatalf("expected empty status, got %+v", st)
	}
}
