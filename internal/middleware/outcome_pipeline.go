package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// Sink is the minimal downstream interface the pipeline needs.
type Sink interface {
	Ingest(ctx context.Context, o *models.Outcome) error
}

// OutcomePipeline sits between the feedback consumer and the trust model.
// It validates, throttles per source, and buffers when downstream is
// unavailable, so a replayed outcomes topic cannot flood the tracker.
type OutcomePipeline struct {
	sink     Sink
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Outcome
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-source last accepted time
}

type PipelineOption func(*OutcomePipeline)

// WithMaxRPS sets the max outcomes per second per source.
func WithMaxRPS(n int) PipelineOption {
	return func(p *OutcomePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *OutcomePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewOutcomePipeline creates a new pipeline.
func NewOutcomePipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *OutcomePipeline {
	p := &OutcomePipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   20,  // default throttle per source
		bufSize:  500, // default buffer
		bufCh:    make(chan *models.Outcome, 500),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Outcome, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered outcomes.
func (p *OutcomePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case o := <-p.bufCh:
				if o == nil {
					continue
				}
				if err := p.sink.Ingest(ctx, o); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- o:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *OutcomePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Ingest validates, throttles, and forwards an outcome, buffering on errors.
func (p *OutcomePipeline) Ingest(ctx context.Context, o *models.Outcome) error {
	start := time.Now()
	if err := validateOutcome(o); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(o.SourceID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.sink.Ingest(ctx, o); err != nil {
		p.metrics.RecordError("pipeline_ingest")
		// buffer non-blocking
		select {
		case p.bufCh <- o:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_ingest", time.Since(start).Seconds())
	return nil
}

func validateOutcome(o *models.Outcome) error {
	if o == nil {
		return fmt.Errorf("outcome nil")
	}
	if o.SourceID == "" {
		return fmt.Errorf("source empty")
	}
	if o.InstrumentID == "" {
		return fmt.Errorf("instrument empty")
	}
	if !domrepo.IsValidHorizon(domrepo.Horizon(o.Horizon)) {
		return fmt.Errorf("horizon %q invalid", o.Horizon)
	}
	return nil
}

func (p *OutcomePipeline) allow(source string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[source]
	if last.IsZero() {
		p.lastSeen[source] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[source] = now
	return true
}
