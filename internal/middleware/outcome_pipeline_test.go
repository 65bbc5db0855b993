package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
)

type sinkStub struct {
	mu   sync.Mutex
	got  []*models.Outcome
	fail bool
}

func (s *sinkStub) Ingest(_ context.Context, o *models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("sink down")
	}
	s.got = append(s.got, o)
	return nil
}

func (s *sinkStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type errCounter struct {
	mu   sync.Mutex
	errs map[string]int
}

func (m *errCounter) RecordDecision(string, string) {}
func (m *errCounter) RecordOverride(string) {}
func (m *errCounter) RecordContested(string) {}
func (m *errCounter) RecordSignalDropped(string) {}
func (m *errCounter) RecordLatency(string, float64) {}
func (m *errCounter) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.errs = map[string]int{}
	}
	m.errs[kind]++
}

func (m *errCounter) get(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[kind]
}

func outcome(source string) *models.Outcome {
	return &models.Outcome{
		SourceID:     source,
		InstrumentID: "BTCUSDT",
		Horizon:      "D1",
		WasCorrect:   true,
		ResolvedAt:   time.Now(),
	}
}

func TestPipelineForwardsValidOutcome(t *testing.T) {
	sink := &sinkStub{}
	p := NewOutcomePipeline(sink, &errCounter{})

	if err := p.Ingest(context.Background(), outcome("technical")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 forwarded outcome, got %d", sink.count())
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	sink := &sinkStub{}
	m := &errCounter{}
	p := NewOutcomePipeline(sink, m)

	cases := []*models.Outcome{
		nil,
		{InstrumentID: "BTCUSDT", Horizon: "D1"},
		{SourceID: "technical", Horizon: "D1"},
		{SourceID: "technical", InstrumentID: "BTCUSDT", Horizon: "D2"},
	}
	for i, o := range cases {
		if err := p.Ingest(context.Background(), o); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if sink.count() != 0 {
		t.Fatalf("invalid outcomes reached the sink")
	}
	if m.get("pipeline_validate") != len(cases) {
		t.Fatalf("expected %d validate errors, got %d", len(cases), m.get("pipeline_validate"))
	}
}

func TestPipelineThrottlesPerSource(t *testing.T) {
	sink := &sinkStub{}
	m := &errCounter{}
	p := NewOutcomePipeline(sink, m, WithMaxRPS(1))

	// second outcome from the same source inside the window is dropped
	if err := p.Ingest(context.Background(), outcome("technical")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := p.Ingest(context.Background(), outcome("technical")); err != nil {
		t.Fatalf("throttled ingest should not error: %v", err)
	}
	// a different source is not affected
	if err := p.Ingest(context.Background(), outcome("lstm")); err != nil {
		t.Fatalf("other source: %v", err)
	}

	if sink.count() != 2 {
		t.Fatalf("expected 2 forwarded outcomes, got %d", sink.count())
	}
	if m.get("pipeline_throttle") != 1 {
		t.Fatalf("expected 1 throttle drop, got %d", m.get("pipeline_throttle"))
	}
}

func TestPipelineBuffersOnSinkError(t *testing.T) {
	sink := &sinkStub{fail: true}
	m := &errCounter{}
	p := NewOutcomePipeline(sink, m, WithBufferSize(4))

	if err := p.Ingest(context.Background(), outcome("technical")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if m.get("pipeline_ingest") != 1 {
		t.Fatalf("expected ingest error recorded")
	}

	// buffered outcome flushes once the sink recovers
	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("buffered outcome was not flushed")
	}
}
