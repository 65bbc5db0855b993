package repository

import (
	"context"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/cache"
)

func TestDecisionStorePutGetRoundTrip(t *testing.T) {
	s := NewRedisDecisionStore(cache.NewMemoryCache())
	ctx := context.Background()

	d := &models.Decision{
		InstrumentID: "BTCUSDT",
		Horizon:      "D1",
		Verdict:      models.VerdictBuy,
		Confidence:   0.72,
		Reasons:      []string{"technical UP confidence 0.80 weight 0.50"},
		LockedUntil:  time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC),
		LockReason:   models.LockReasonNew,
		CreatedAt:    time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC),
	}
	if err := s.Put(ctx, d); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Verdict != models.VerdictBuy || got.Confidence != 0.72 {
		t.Fatalf("unexpected decision: %+v", got)
	}
	if !got.LockedUntil.Equal(d.LockedUntil) {
		t.Fatalf("locked_until = %v, want %v", got.LockedUntil, d.LockedUntil)
	}
}

func TestDecisionStoreGetMissingReturnsNil(t *testing.T) {
	s := NewRedisDecisionStore(cache.NewMemoryCache())

	got, err := s.Get(context.Background(), "ETHUSDT", domrepo.H1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestDecisionStorePutReplacesWholeRecord(t *testing.T) {
	s := NewRedisDecisionStore(cache.NewMemoryCache())
	ctx := context.Background()

	first := &models.Decision{InstrumentID: "BTCUSDT", Horizon: "D1", Verdict: models.VerdictBuy, PendingCount: 2}
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second := &models.Decision{InstrumentID: "BTCUSDT", Horizon: "D1", Verdict: models.VerdictAvoid}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Verdict != models.VerdictAvoid || got.PendingCount != 0 {
		t.Fatalf("stale fields survived replacement: %+v", got)
	}
}

func TestDecisionStoreAllActive(t *testing.T) {
	s := NewRedisDecisionStore(cache.NewMemoryCache())
	ctx := context.Background()

	for _, k := range []struct {
		inst string
		hz   string
	}{
		{"BTCUSDT", "D1"}, {"BTCUSDT", "D5"}, {"ETHUSDT", "D1"},
	} {
		d := &models.Decision{InstrumentID: k.inst, Horizon: k.hz, Verdict: models.VerdictHold}
		if err := s.Put(ctx, d); err != nil {
			t.Fatalf("Put %s/%s: %v", k.inst, k.hz, err)
		}
	}
	// rewrite one key; the index must not grow
	if err := s.Put(ctx, &models.Decision{InstrumentID: "BTCUSDT", Horizon: "D1", Verdict: models.VerdictBuy}); err != nil {
		t.Fatalf("Put rewrite: %v", err)
	}

	all, err := s.AllActive(ctx)
	if err != nil {
		t.Fatalf("AllActive: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d active decisions, want 3", len(all))
	}
}

func TestDecisionStoreDistinctHorizonsIndependent(t *testing.T) {
	s := NewRedisDecisionStore(cache.NewMemoryCache())
	ctx := context.Background()

	_ = s.Put(ctx, &models.Decision{InstrumentID: "BTCUSDT", Horizon: "D1", Verdict: models.VerdictBuy})
	_ = s.Put(ctx, &models.Decision{InstrumentID: "BTCUSDT", Horizon: "D30", Verdict: models.VerdictAvoid})

	d1, _ := s.Get(ctx, "BTCUSDT", domrepo.D1)
	d30, _ := s.Get(ctx, "BTCUSDT", domrepo.D30)
	if d1.Verdict != models.VerdictBuy || d30.Verdict != models.VerdictAvoid {
		t.Fatalf("horizons bled into each other: D1=%s D30=%s", d1.Verdict, d30.Verdict)
	}
}

func TestPerformanceStoreRoundTripAndForKey(t *testing.T) {
	s := NewRedisPerformanceStore(cache.NewMemoryCache())
	ctx := context.Background()

	for _, src := range []string{"technical", "lstm", "sentiment"} {
		p := &models.SourcePerformance{
			SourceID:       src,
			InstrumentID:   "BTCUSDT",
			Horizon:        "D1",
			Wins:           3,
			Total:          5,
			RecentAccuracy: 0.6,
			Recent:         []bool{true, false, true, true, false},
		}
		if err := s.Put(ctx, p); err != nil {
			t.Fatalf("Put %s: %v", src, err)
		}
	}

	got, err := s.Get(ctx, "lstm", "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.RecentAccuracy != 0.6 || len(got.Recent) != 5 {
		t.Fatalf("unexpected record: %+v", got)
	}

	all, err := s.ForKey(ctx, "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("ForKey: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	// index keeps sources sorted
	if all[0].SourceID != "lstm" || all[1].SourceID != "sentiment" || all[2].SourceID != "technical" {
		t.Fatalf("unexpected order: %s %s %s", all[0].SourceID, all[1].SourceID, all[2].SourceID)
	}
}

func TestPerformanceStoreMissingReturnsNil(t *testing.T) {
	s := NewRedisPerformanceStore(cache.NewMemoryCache())

	got, err := s.Get(context.Background(), "technical", "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}

	all, err := s.ForKey(context.Background(), "BTCUSDT", domrepo.D1)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty ForKey, got %v err=%v", all, err)
	}
}
