package stability

import (
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
)

func newTestManager() *Manager {
	return New(Config{
		Confirmations:   3,
		StrongThreshold: 0.85,
		FirmThreshold:   0.70,
		StrongHoldDays:  30,
		FirmHoldDays:    5,
		WeakHoldDays:    1,
		HistoryCap:      200,
	})
}

func res(v models.Verdict, conf float64) models.Resolution {
	return models.Resolution{Direction: models.DirectionUp, Verdict: v, Confidence: conf}
}

var monday = time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC)

func TestAdoptFirstDecision(t *testing.T) {
	m := newTestManager()
	d, ev := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)
	if ev != EventAdopted {
		t.Fatalf("expected adopted, got %s", ev)
	}
	if d.Verdict != models.VerdictStrongBuy {
		t.Fatalf("unexpected verdict %s", d.Verdict)
	}
	if d.LockReason != models.LockReasonNew {
		t.Fatalf("unexpected lock reason %s", d.LockReason)
	}
	if !d.Locked(monday.Add(time.Hour)) {
		t.Fatalf("fresh decision must be locked")
	}
}

func TestHoldPeriodTiers(t *testing.T) {
	m := newTestManager()

	strong, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)
	firm, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictBuy, 0.75), monday)
	weak, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictHold, 0.4), monday)

	// 30, 5, 1 trading days from a Monday
	if got := strong.LockedUntil; !got.Equal(time.Date(2024, 11, 18, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("strong hold: got %v", got)
	}
	if got := firm.LockedUntil; !got.Equal(time.Date(2024, 10, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("firm hold: got %v", got)
	}
	if got := weak.LockedUntil; !got.Equal(time.Date(2024, 10, 8, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("weak hold: got %v", got)
	}
}

func TestHoldPeriodMonotonic(t *testing.T) {
	m := newTestManager()
	confs := []float64{0.1, 0.3, 0.5, 0.69, 0.7, 0.84, 0.85, 0.99}
	var prev time.Time
	for _, c := range confs {
		d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictBuy, c), monday)
		if d.LockedUntil.Before(prev) {
			t.Fatalf("hold shrank at confidence %v", c)
		}
		prev = d.LockedUntil
	}
}

func TestLockedContradictionBelowThresholdNeverChanges(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)

	now := monday
	for i := 0; i < 2; i++ {
		now = now.Add(time.Hour)
		var ev Event
		d, ev = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), now)
		if ev != EventHeld {
			t.Fatalf("cycle %d: expected held, got %s", i, ev)
		}
		if d.Verdict != models.VerdictStrongBuy {
			t.Fatalf("cycle %d: verdict flipped early to %s", i, d.Verdict)
		}
	}
	if d.PendingCount != 2 || d.PendingVerdict != models.VerdictAvoid {
		t.Fatalf("pending not tracked: %+v", d)
	}
}

func TestOverrideAtExactThreshold(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)

	now := monday
	var ev Event
	for i := 0; i < 3; i++ {
		now = now.Add(time.Hour)
		d, ev = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), now)
	}
	if ev != EventOverridden {
		t.Fatalf("expected override at third confirmation, got %s", ev)
	}
	if d.Verdict != models.VerdictAvoid {
		t.Fatalf("override must adopt the new verdict, got %s", d.Verdict)
	}
	if d.LockReason != models.LockReasonOverride {
		t.Fatalf("unexpected lock reason %s", d.LockReason)
	}
	if len(d.History) != 1 || d.History[0].Verdict != models.VerdictStrongBuy {
		t.Fatalf("old decision must be archived: %+v", d.History)
	}
	if d.PendingCount != 0 || d.PendingVerdict != "" {
		t.Fatalf("pending must reset after override")
	}

	// the change happens exactly once; the next matching cycle is a refresh
	d2, ev := m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), now.Add(time.Hour))
	if ev != EventRefreshed {
		t.Fatalf("expected refresh, got %s", ev)
	}
	if len(d2.History) != 1 {
		t.Fatalf("refresh must not archive again")
	}
}

func TestAgreementResetsPendingCounter(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)

	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(1*time.Hour))
	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(2*time.Hour))
	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday.Add(3*time.Hour))
	if d.PendingCount != 0 {
		t.Fatalf("agreement must clear pending, got %d", d.PendingCount)
	}

	// contradiction must start over from 1
	d, ev := m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(4*time.Hour))
	if ev != EventHeld || d.PendingCount != 1 {
		t.Fatalf("expected fresh pending count 1, got ev=%s count=%d", ev, d.PendingCount)
	}
}

func TestPendingVerdictSwitchResets(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)

	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(1*time.Hour))
	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(2*time.Hour))
	d, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictHold, 0.5), monday.Add(3*time.Hour))
	if d.PendingVerdict != models.VerdictHold || d.PendingCount != 1 {
		t.Fatalf("a different contradiction must restart the counter: %+v", d)
	}
}

func TestExpiredLockUnlocksBeforeApply(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictHold, 0.4), monday) // 1 trading day hold

	after := d.LockedUntil.Add(time.Minute)
	d2, ev := m.Apply(d, "AAPL", "D1", res(models.VerdictBuy, 0.75), after)
	if ev != EventAdopted {
		t.Fatalf("expired lock must allow adoption, got %s", ev)
	}
	if d2.Verdict != models.VerdictBuy {
		t.Fatalf("unexpected verdict %s", d2.Verdict)
	}
	if len(d2.History) != 1 {
		t.Fatalf("prior decision must be archived")
	}
}

func TestUnlockedSameVerdictRefreshesLock(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictBuy, 0.75), monday)

	after := d.LockedUntil.Add(time.Minute)
	d2, ev := m.Apply(d, "AAPL", "D1", res(models.VerdictBuy, 0.8), after)
	if ev != EventRefreshed {
		t.Fatalf("expected refresh, got %s", ev)
	}
	if d2.LockReason != models.LockReasonRefreshed {
		t.Fatalf("unexpected lock reason %s", d2.LockReason)
	}
	if !d2.LockedUntil.After(after) {
		t.Fatalf("refresh must renew the hold")
	}
}

func TestHistoryCap(t *testing.T) {
	m := New(Config{Confirmations: 1, HistoryCap: 3, WeakHoldDays: 1})
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictBuy, 0.2), monday)

	verdicts := []models.Verdict{
		models.VerdictHold, models.VerdictCautious, models.VerdictBuy,
		models.VerdictHold, models.VerdictCautious,
	}
	now := monday
	for _, v := range verdicts {
		now = now.Add(time.Hour)
		d, _ = m.Apply(d, "AAPL", "D1", res(v, 0.2), now)
	}
	if len(d.History) != 3 {
		t.Fatalf("history must be capped at 3, got %d", len(d.History))
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := newTestManager()
	d, _ := m.Apply(nil, "AAPL", "D1", res(models.VerdictStrongBuy, 0.9), monday)
	before := *d

	_, _ = m.Apply(d, "AAPL", "D1", res(models.VerdictAvoid, 0.9), monday.Add(time.Hour))
	if d.PendingCount != before.PendingCount || d.Verdict != before.Verdict {
		t.Fatalf("input decision was mutated")
	}
}
