package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/repository"
	"SignalFuse/internal/services/trust"
	"SignalFuse/pkg/cache"
)

func newTestIngest() (*OutcomeIngest, domrepo.PerformanceStore) {
	perf := repository.NewRedisPerformanceStore(cache.NewMemoryCache())
	tm := trust.NewEMATrustModel(trust.Config{}, perf)
	return NewOutcomeIngest(tm, nil), perf
}

func TestIngestRecordsOutcome(t *testing.T) {
	ing, perf := newTestIngest()

	o := &models.Outcome{
		SourceID:     "technical",
		InstrumentID: "BTCUSDT",
		Horizon:      "D1",
		WasCorrect:   true,
		ResolvedAt:   time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC),
	}
	if err := ing.Ingest(context.Background(), o); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	p, err := perf.Get(context.Background(), "technical", "BTCUSDT", domrepo.D1)
	if err != nil || p == nil {
		t.Fatalf("performance record missing: %v", err)
	}
	if p.Wins != 1 || p.Total != 1 {
		t.Fatalf("unexpected tallies: %+v", p)
	}
}

func TestIngestRejectsInvalidOutcomes(t *testing.T) {
	ing, _ := newTestIngest()
	ctx := context.Background()

	cases := []*models.Outcome{
		nil,
		{InstrumentID: "BTCUSDT", Horizon: "D1"},
		{SourceID: "technical", Horizon: "D1"},
		{SourceID: "technical", InstrumentID: "BTCUSDT", Horizon: "D2"},
	}
	for i, o := range cases {
		if err := ing.Ingest(ctx, o); err == nil {
			t.Fatalf("case %d: expected rejection for %+v", i, o)
		}
	}
}

func TestIngestArchivesOutcome(t *testing.T) {
	ing, _ := newTestIngest()
	arch := &captureArchive{}
	ing.SetArchive(arch)

	o := &models.Outcome{SourceID: "lstm", InstrumentID: "ETHUSDT", Horizon: "D5", WasCorrect: false}
	if err := ing.Ingest(context.Background(), o); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(arch.outcomes) != 1 {
		t.Fatalf("archive got %d outcomes, want 1", len(arch.outcomes))
	}
	if arch.outcomes[0].ResolvedAt.IsZero() {
		t.Fatal("missing resolved_at should be defaulted before archiving")
	}
}

func TestKafkaOutcomesHandlerRoutesMessage(t *testing.T) {
	ing, perf := newTestIngest()
	h := NewKafkaOutcomesHandler("prediction.outcomes", ing, nil)

	if h.Topic() != "prediction.outcomes" {
		t.Fatalf("topic = %s", h.Topic())
	}

	b, _ := json.Marshal(map[string]interface{}{
		"source_id":     "sentiment",
		"instrument_id": "BTCUSDT",
		"horizon":       "H1",
		"was_correct":   true,
		"resolved_at":   time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC),
	})
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	p, err := perf.Get(context.Background(), "sentiment", "BTCUSDT", domrepo.H1)
	if err != nil || p == nil || p.Wins != 1 {
		t.Fatalf("outcome did not reach the trust model: %+v err=%v", p, err)
	}
}

func TestKafkaOutcomesHandlerRejectsGarbage(t *testing.T) {
	ing, _ := newTestIngest()
	h := NewKafkaOutcomesHandler("prediction.outcomes", ing, nil)

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
