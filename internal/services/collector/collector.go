package collector

import (
	"context"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/domain/service"
	applogger "SignalFuse/pkg/logger"
)

// Drop reasons reported to metrics.
const (
	DropStale      = "stale"
	DropConfidence = "confidence_range"
	DropDirection  = "invalid_direction"
	DropDuplicate  = "duplicate"
)

// Collector polls registered predictor sources and returns the usable
// signals for one (instrument, horizon) key. A failing or silent source
// never fails the collection; it is simply absent from the result.
type Collector struct {
	sources []service.PredictorSource
	maxAge  time.Duration

	l       *applogger.Logger
	metrics domrepo.Metrics
	now     func() time.Time
}

func New(sources []service.PredictorSource, maxAge time.Duration) *Collector {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Collector{
		sources: sources,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// SetLogger injects a structured logger.
func (c *Collector) SetLogger(l *applogger.Logger) { c.l = l }

// SetMetrics injects a metrics recorder.
func (c *Collector) SetMetrics(m domrepo.Metrics) { c.metrics = m }

// SetClock overrides the staleness clock.
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

// Collect gathers at most one signal per source for the given key.
// Sources that error are skipped after logging; sources with no current
// opinion contribute nothing.
func (c *Collector) Collect(ctx context.Context, instrumentID string, horizon domrepo.Horizon) ([]models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.now()
	seen := make(map[string]bool, len(c.sources))
	signals := make([]models.Signal, 0, len(c.sources))

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := src.SourceID()
		op, ok, err := src.Opinion(ctx, instrumentID, horizon)
		if err != nil {
			c.warn("predictor failed", id, instrumentID, horizon, err)
			c.recordError("predictor")
			continue
		}
		if !ok || op == nil {
			continue
		}

		if seen[id] {
			c.drop(DropDuplicate, id, instrumentID, horizon)
			continue
		}
		if !op.Direction.IsValid() {
			c.drop(DropDirection, id, instrumentID, horizon)
			continue
		}
		if op.Confidence < 0 || op.Confidence > 1 {
			c.drop(DropConfidence, id, instrumentID, horizon)
			continue
		}
		if now.Sub(op.ObservedAt) > c.maxAge {
			c.drop(DropStale, id, instrumentID, horizon)
			continue
		}

		seen[id] = true
		signals = append(signals, models.Signal{
			SourceID:     id,
			InstrumentID: instrumentID,
			Direction:    op.Direction,
			Confidence:   op.Confidence,
			Horizon:      string(horizon),
			ObservedAt:   op.ObservedAt,
		})
	}

	return signals, nil
}

func (c *Collector) drop(reason, sourceID, instrumentID string, horizon domrepo.Horizon) {
	if c.metrics != nil {
		c.metrics.RecordSignalDropped(reason)
	}
	if c.l != nil {
		c.l.Debug("signal dropped",
			applogger.String("reason", reason),
			applogger.String("source", sourceID),
			applogger.String("instrument", instrumentID),
			applogger.String("horizon", string(horizon)))
	}
}

func (c *Collector) warn(msg, sourceID, instrumentID string, horizon domrepo.Horizon, err error) {
	if c.l != nil {
		c.l.Warn(msg,
			applogger.String("source", sourceID),
			applogger.String("instrument", instrumentID),
			applogger.String("horizon", string(horizon)),
			applogger.Error(err))
	}
}

func (c *Collector) recordError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}
