package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
)

// keyedSource answers only for one instrument and errors for another, so a
// cycle exercises both the happy and the isolated-failure paths.
type keyedSource struct {
	id       string
	failFor  string
	opinions map[string]*models.Opinion
}

func (s *keyedSource) SourceID() string { return s.id }

func (s *keyedSource) Opinion(_ context.Context, instrumentID string, _ domrepo.Horizon) (*models.Opinion, bool, error) {
	if instrumentID == s.failFor {
		return nil, false, errors.New("source refused")
	}
	op, ok := s.opinions[instrumentID]
	return op, ok, nil
}

func TestCycleRunnerEvaluatesEveryKey(t *testing.T) {
	now := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	src := &keyedSource{
		id: "technical",
		opinions: map[string]*models.Opinion{
			"BTCUSDT": opinionAt(models.DirectionUp, 0.9, now),
			"ETHUSDT": opinionAt(models.DirectionDown, 0.8, now),
		},
	}
	ev, store := newTestEvaluator([]domsvc.PredictorSource{src}, now)

	runner := NewCycleRunner(ev, []string{"BTCUSDT", "ETHUSDT"}, []string{"D1", "D5"}, 2)
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Evaluated != 4 || report.Failed != 0 {
		t.Fatalf("evaluated=%d failed=%d, want 4/0", report.Evaluated, report.Failed)
	}
	if report.Adopted != 4 {
		t.Fatalf("adopted=%d, want 4 on a cold start", report.Adopted)
	}

	all, err := store.AllActive(context.Background())
	if err != nil {
		t.Fatalf("AllActive: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("store holds %d decisions, want 4", len(all))
	}
}

func TestCycleRunnerIsolatesKeyFailures(t *testing.T) {
	now := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	src := &keyedSource{
		id: "technical",
		opinions: map[string]*models.Opinion{
			"BTCUSDT": opinionAt(models.DirectionUp, 0.9, now),
		},
	}
	ev, store := newTestEvaluator([]domsvc.PredictorSource{src}, now)

	runner := NewCycleRunner(ev, []string{"BTCUSDT", "ETHUSDT"}, []string{"D1"}, 1)
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Evaluated != 2 {
		t.Fatalf("evaluated=%d, want 2: a silent source still yields a HOLD decision", report.Evaluated)
	}

	eth, err := store.Get(context.Background(), "ETHUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if eth == nil || eth.Verdict != models.VerdictHold {
		t.Fatalf("instrument without signals should hold, got %+v", eth)
	}
}

func TestCycleRunnerInvalidHorizonsFallBack(t *testing.T) {
	now := time.Now()
	ev, _ := newTestEvaluator(nil, now)

	runner := NewCycleRunner(ev, []string{"BTCUSDT"}, []string{"bogus"}, 1)
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Evaluated != 4 {
		t.Fatalf("evaluated=%d, want all 4 default horizons", report.Evaluated)
	}
}

func TestCycleRunnerCoalescesConcurrentRuns(t *testing.T) {
	now := time.Now()
	ev, _ := newTestEvaluator(nil, now)
	runner := NewCycleRunner(ev, []string{"BTCUSDT"}, []string{"D1"}, 1)

	runner.mu.Lock()
	runner.running = true
	runner.mu.Unlock()

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report while another cycle is in flight, got %+v", report)
	}
}

func TestCycleRunnerRecordsLastReport(t *testing.T) {
	now := time.Now()
	ev, _ := newTestEvaluator(nil, now)
	runner := NewCycleRunner(ev, []string{"BTCUSDT"}, []string{"D1"}, 1)

	if runner.LastReport() != nil {
		t.Fatal("expected no report before the first run")
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := runner.LastReport(); got == nil || got.Evaluated != 1 {
		t.Fatalf("unexpected last report: %+v", got)
	}
}
