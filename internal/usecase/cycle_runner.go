package usecase

import (
	"context"
	"sync"
	"time"

	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/services/stability"
	applogger "SignalFuse/pkg/logger"
)

// CycleReport summarizes one batch evaluation pass.
type CycleReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Evaluated int           `json:"evaluated"`
	Failed    int           `json:"failed"`
	Adopted   int           `json:"adopted"`
	Overrides int           `json:"overrides"`
	Errors    []CycleError  `json:"errors,omitempty"`
}

// CycleError is one isolated per-key failure.
type CycleError struct {
	InstrumentID string `json:"instrument_id"`
	Horizon      string `json:"horizon"`
	Err          string `json:"error"`
}

// CycleRunner fans one evaluation per (instrument, horizon) key out over a
// bounded worker pool. A key that fails is reported and skipped; it never
// aborts the cycle.
type CycleRunner struct {
	evaluator   *Evaluator
	instruments []string
	horizons    []domrepo.Horizon
	workers     int

	l       *applogger.Logger
	metrics domrepo.Metrics

	mu      sync.Mutex
	running bool
	last    *CycleReport
}

func NewCycleRunner(ev *Evaluator, instruments, horizons []string, workers int) *CycleRunner {
	if workers <= 0 {
		workers = 4
	}
	hs := make([]domrepo.Horizon, 0, len(horizons))
	for _, h := range horizons {
		if hz := domrepo.Horizon(h); domrepo.IsValidHorizon(hz) {
			hs = append(hs, hz)
		}
	}
	if len(hs) == 0 {
		hs = domrepo.AllHorizons()
	}
	return &CycleRunner{
		evaluator:   ev,
		instruments: instruments,
		horizons:    hs,
		workers:     workers,
	}
}

// SetLogger injects a structured logger.
func (r *CycleRunner) SetLogger(l *applogger.Logger) { r.l = l }

// SetMetrics injects a metrics recorder.
func (r *CycleRunner) SetMetrics(m domrepo.Metrics) { r.metrics = m }

// LastReport returns the most recent cycle report, or nil before the first run.
func (r *CycleRunner) LastReport() *CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type cycleKey struct {
	instrument string
	horizon    domrepo.Horizon
}

// Run evaluates every configured key once and returns the report. Concurrent
// Run calls coalesce: a second caller while a cycle is in flight gets an
// immediate nil report instead of a duplicate pass.
func (r *CycleRunner) Run(ctx context.Context) (*CycleReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report := &CycleReport{StartedAt: time.Now()}

	keys := make(chan cycleKey)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range keys {
				_, event, err := r.evaluator.Evaluate(ctx, k.instrument, k.horizon)

				mu.Lock()
				if err != nil {
					report.Failed++
					report.Errors = append(report.Errors, CycleError{
						InstrumentID: k.instrument,
						Horizon:      string(k.horizon),
						Err:          err.Error(),
					})
				} else {
					report.Evaluated++
					switch event {
					case stability.EventAdopted:
						report.Adopted++
					case stability.EventOverridden:
						report.Overrides++
					}
				}
				mu.Unlock()

				if err != nil && r.l != nil {
					r.l.Error("evaluation failed",
						applogger.String("instrument", k.instrument),
						applogger.String("horizon", string(k.horizon)),
						applogger.Error(err))
				}
			}
		}()
	}

feed:
	for _, inst := range r.instruments {
		for _, hz := range r.horizons {
			select {
			case <-ctx.Done():
				break feed
			case keys <- cycleKey{instrument: inst, horizon: hz}:
			}
		}
	}
	close(keys)
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)
	if r.metrics != nil {
		r.metrics.RecordLatency("cycle", report.Duration.Seconds())
	}
	if r.l != nil {
		r.l.Info("evaluation cycle finished",
			applogger.Int("evaluated", report.Evaluated),
			applogger.Int("failed", report.Failed),
			applogger.Int("adopted", report.Adopted),
			applogger.Int("overrides", report.Overrides),
			applogger.Duration("took", report.Duration))
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
	return report, ctx.Err()
}

// Loop runs cycles on the given interval until ctx is cancelled. The first
// cycle starts immediately.
func (r *CycleRunner) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx); err != nil && ctx.Err() == nil && r.l != nil {
			r.l.Error("cycle run failed", applogger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
