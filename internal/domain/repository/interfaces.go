package repository

import (
	"context"

	"SignalFuse/internal/domain/models"
)

// DecisionStore owns the active Decision per (instrument, horizon) key.
// Put must be atomic per key: concurrent readers never observe a half-written
// record, and the previously committed value survives a crash mid-write.
type DecisionStore interface {
	Get(ctx context.Context, instrumentID string, horizon Horizon) (*models.Decision, error)
	Put(ctx context.Context, d *models.Decision) error
	AllActive(ctx context.Context) ([]*models.Decision, error)
	Health(ctx context.Context) error
	Close() error
}

// PerformanceStore persists rolling reliability records per (source, instrument, horizon).
type PerformanceStore interface {
	Get(ctx context.Context, sourceID, instrumentID string, horizon Horizon) (*models.SourcePerformance, error)
	Put(ctx context.Context, p *models.SourcePerformance) error
	ForKey(ctx context.Context, instrumentID string, horizon Horizon) ([]*models.SourcePerformance, error)
	Close() error
}

// Archive is the append-only analytical sink for adopted decisions and
// resolved outcomes. Failures here are never fatal to an evaluation.
type Archive interface {
	Init(ctx context.Context) error // ensure tables, health checks
	AppendDecision(ctx context.Context, d *models.Decision) error
	AppendOutcome(ctx context.Context, o *models.Outcome) error
	SourceOutcomes(ctx context.Context, instrumentID string, horizon Horizon, limit int) ([]*models.Outcome, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits decision-change events for downstream consumers.
type Publisher interface {
	PublishDecision(ctx context.Context, d *models.Decision) error
	Close() error
}

// Metrics records engine activity counters and latencies.
type Metrics interface {
	RecordDecision(verdict, horizon string)
	RecordOverride(instrument string)
	RecordContested(instrument string)
	RecordSignalDropped(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
