package trust

import (
	"context"
	"math"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

type fakePerfStore struct {
	m map[string]*models.SourcePerformance
}

func newFakePerfStore() *fakePerfStore {
	return &fakePerfStore{m: make(map[string]*models.SourcePerformance)}
}

func perfKey(src, inst string, h domrepo.Horizon) string {
	return src + ":" + inst + ":" + string(h)
}

func (f *fakePerfStore) Get(_ context.Context, src, inst string, h domrepo.Horizon) (*models.SourcePerformance, error) {
	p, ok := f.m[perfKey(src, inst, h)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePerfStore) Put(_ context.Context, p *models.SourcePerformance) error {
	cp := *p
	f.m[perfKey(p.SourceID, p.InstrumentID, domrepo.Horizon(p.Horizon))] = &cp
	return nil
}

func (f *fakePerfStore) ForKey(_ context.Context, inst string, h domrepo.Horizon) ([]*models.SourcePerformance, error) {
	var out []*models.SourcePerformance
	for _, p := range f.m {
		if p.InstrumentID == inst && p.Horizon == string(h) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePerfStore) Close() error { return nil }

func outcome(src string, correct bool) *models.Outcome {
	return &models.Outcome{
		SourceID:     src,
		InstrumentID: "AAPL",
		Horizon:      "D1",
		WasCorrect:   correct,
		ResolvedAt:   time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC),
	}
}

func feed(t *testing.T, m *EMATrustModel, src string, correct int, wrong int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < correct; i++ {
		if err := m.RecordOutcome(ctx, outcome(src, true)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	for i := 0; i < wrong; i++ {
		if err := m.RecordOutcome(ctx, outcome(src, false)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
}

func TestRecordOutcomeCreatesLazily(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{}, store)

	feed(t, m, "technical", 3, 1)

	p, err := store.Get(context.Background(), "technical", "AAPL", domrepo.D1)
	if err != nil || p == nil {
		t.Fatalf("expected record, err=%v", err)
	}
	if p.Wins != 3 || p.Losses != 1 || p.Total != 4 {
		t.Fatalf("unexpected tallies %+v", p)
	}
}

func TestEMAMovesTowardObservedAccuracy(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{Smoothing: 0.1, Window: 50, MinOutcomes: 5}, store)

	feed(t, m, "lstm", 30, 0)
	p, _ := store.Get(context.Background(), "lstm", "AAPL", domrepo.D1)
	if p.RecentAccuracy <= 0.9 {
		t.Fatalf("all-correct source should approach 1.0, got %v", p.RecentAccuracy)
	}

	feed(t, m, "lstm", 0, 30)
	p, _ = store.Get(context.Background(), "lstm", "AAPL", domrepo.D1)
	if p.RecentAccuracy >= 0.1 {
		t.Fatalf("all-wrong streak should pull accuracy down, got %v", p.RecentAccuracy)
	}
}

func TestWindowBoundsRecentOutcomes(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{Window: 10}, store)

	feed(t, m, "technical", 25, 0)
	p, _ := store.Get(context.Background(), "technical", "AAPL", domrepo.D1)
	if len(p.Recent) != 10 {
		t.Fatalf("window must cap stored outcomes, got %d", len(p.Recent))
	}
	if p.Total != 25 {
		t.Fatalf("lifetime total must keep counting, got %d", p.Total)
	}
}

func TestWeightsNormalized(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{MinOutcomes: 5}, store)

	feed(t, m, "technical", 8, 2)
	feed(t, m, "lstm", 5, 5)
	feed(t, m, "sentiment", 2, 8)

	weights, err := m.WeightsFor(context.Background(), "AAPL", domrepo.D1)
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("weights must sum to 1, got %v", sum)
	}
	if weights["technical"] <= weights["sentiment"] {
		t.Fatalf("more accurate source must carry more weight: %+v", weights)
	}
}

func TestBootstrapWeightForNewSource(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{MinOutcomes: 5, BootstrapAccuracy: 0.5}, store)

	feed(t, m, "technical", 20, 0)
	feed(t, m, "newcomer", 0, 2) // two losses, still below min outcomes

	weights, err := m.WeightsFor(context.Background(), "AAPL", domrepo.D1)
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	if weights["newcomer"] <= 0 {
		t.Fatalf("new source must not be starved: %+v", weights)
	}
}

func TestPriorSeedsAccuracy(t *testing.T) {
	store := newFakePerfStore()
	m := NewEMATrustModel(Config{
		MinOutcomes: 5,
		Priors:      map[string]float64{"technical": 0.35, "fundamental": 0.25},
	}, store)

	feed(t, m, "technical", 1, 0)
	feed(t, m, "fundamental", 1, 0)

	weights, err := m.WeightsFor(context.Background(), "AAPL", domrepo.D1)
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	if weights["technical"] <= weights["fundamental"] {
		t.Fatalf("higher prior must dominate below min outcomes: %+v", weights)
	}
}

func TestWeightsEmptyWithoutOutcomes(t *testing.T) {
	m := NewEMATrustModel(Config{}, newFakePerfStore())
	weights, err := m.WeightsFor(context.Background(), "AAPL", domrepo.D1)
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	if len(weights) != 0 {
		t.Fatalf("expected empty weights, got %+v", weights)
	}
}
