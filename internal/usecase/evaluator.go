package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
	"SignalFuse/internal/services/collector"
	"SignalFuse/internal/services/resolver"
	"SignalFuse/internal/services/stability"
	applogger "SignalFuse/pkg/logger"
)

// Evaluator runs one full evaluation for a single (instrument, horizon) key:
// collect, weigh, resolve, apply stability rules, persist. Archive and event
// publishing are best-effort; a failure there never loses the decision.
type Evaluator struct {
	collector *collector.Collector
	trust     domsvc.TrustModel
	resolver  *resolver.Resolver
	stability *stability.Manager
	store     domrepo.DecisionStore
	archive   domrepo.Archive
	publisher domrepo.Publisher
	metrics   domrepo.Metrics

	l   *applogger.Logger
	now func() time.Time
}

func NewEvaluator(
	col *collector.Collector,
	trust domsvc.TrustModel,
	res *resolver.Resolver,
	stab *stability.Manager,
	store domrepo.DecisionStore,
	metrics domrepo.Metrics,
) *Evaluator {
	return &Evaluator{
		collector: col,
		trust:     trust,
		resolver:  res,
		stability: stab,
		store:     store,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SetArchive injects the analytical sink.
func (e *Evaluator) SetArchive(a domrepo.Archive) { e.archive = a }

// SetPublisher injects the decision event publisher.
func (e *Evaluator) SetPublisher(p domrepo.Publisher) { e.publisher = p }

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *applogger.Logger) { e.l = l }

// SetClock overrides the evaluation clock.
func (e *Evaluator) SetClock(now func() time.Time) { e.now = now }

// Evaluate runs the pipeline for one key and returns the decision now active.
func (e *Evaluator) Evaluate(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Decision, stability.Event, error) {
	start := time.Now()

	signals, err := e.collector.Collect(ctx, instrumentID, horizon)
	if err != nil {
		e.recordError("collect")
		return nil, "", fmt.Errorf("collect %s/%s: %w", instrumentID, horizon, err)
	}

	weights, err := e.trust.WeightsFor(ctx, instrumentID, horizon)
	if err != nil {
		// degraded but not fatal: the resolver treats unknown sources evenly
		e.recordError("weights")
		e.warn("trust weights unavailable, using uniform", instrumentID, horizon, err)
		weights = nil
	}

	res := e.resolver.Resolve(signals, weights)

	current, err := e.store.Get(ctx, instrumentID, horizon)
	if err != nil {
		e.recordError("store_get")
		return nil, "", fmt.Errorf("load decision %s/%s: %w", instrumentID, horizon, err)
	}

	now := e.now()
	next, event := e.stability.Apply(current, instrumentID, string(horizon), res, now)

	if err := e.put(ctx, next); err != nil {
		e.recordError("store_put")
		return nil, "", fmt.Errorf("persist decision %s/%s: %w", instrumentID, horizon, err)
	}

	e.observe(ctx, next, event)
	if e.metrics != nil {
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}
	return next, event, nil
}

// put writes the decision, retrying once on a transient store failure.
func (e *Evaluator) put(ctx context.Context, d *models.Decision) error {
	err := e.store.Put(ctx, d)
	if err == nil {
		return nil
	}
	e.warn("decision put failed, retrying", d.InstrumentID, domrepo.Horizon(d.Horizon), err)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}
	return e.store.Put(ctx, d)
}

// observe reports metrics and fans the adopted decision out to the archive
// and the event topic. Only events that changed or renewed the record leave
// the engine; a held contradiction is internal state.
func (e *Evaluator) observe(ctx context.Context, d *models.Decision, event stability.Event) {
	if e.metrics != nil {
		e.metrics.RecordDecision(string(d.Verdict), d.Horizon)
		if event == stability.EventOverridden {
			e.metrics.RecordOverride(d.InstrumentID)
		}
		if d.Contested {
			e.metrics.RecordContested(d.InstrumentID)
		}
	}

	if event == stability.EventHeld {
		return
	}

	if e.archive != nil {
		if err := e.archive.AppendDecision(ctx, d); err != nil {
			e.recordError("archive")
			e.warn("decision archive failed", d.InstrumentID, domrepo.Horizon(d.Horizon), err)
		}
	}
	if e.publisher != nil && event != stability.EventRefreshed {
		if err := e.publisher.PublishDecision(ctx, d); err != nil {
			e.recordError("publish")
			e.warn("decision publish failed", d.InstrumentID, domrepo.Horizon(d.Horizon), err)
		}
	}
}

func (e *Evaluator) recordError(kind string) {
	if e.metrics != nil {
		e.metrics.RecordError(kind)
	}
}

func (e *Evaluator) warn(msg, instrumentID string, horizon domrepo.Horizon, err error) {
	if e.l != nil {
		e.l.Warn(msg,
			applogger.String("instrument", instrumentID),
			applogger.String("horizon", string(horizon)),
			applogger.Error(err))
	}
}
