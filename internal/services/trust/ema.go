package trust

import (
	"context"
	"fmt"
	"sort"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/cache"
	applogger "SignalFuse/pkg/logger"
)

// Config holds the tracker tunables.
type Config struct {
	Smoothing         float64            // EMA smoothing factor
	Window            int                // outcomes kept per (source, instrument, horizon)
	MinOutcomes       int                // below this a source keeps its bootstrap accuracy
	BootstrapAccuracy float64            // starting accuracy for sources without a prior
	Priors            map[string]float64 // per-source starting accuracies
	SnapshotTTLSecs   int                // weight snapshot cache TTL, seconds
}

// EMATrustModel derives trust weights from an exponentially weighted moving
// accuracy over the last N resolved outcomes. Weight reads are point-in-time
// snapshots served from cache; outcome writes go straight to the store, so a
// slightly stale weight never blocks an evaluation.
type EMATrustModel struct {
	cfg   Config
	store domrepo.PerformanceStore
	snap  cache.Service // optional snapshot cache
	l     *applogger.Logger
}

func NewEMATrustModel(cfg Config, store domrepo.PerformanceStore) *EMATrustModel {
	if cfg.Smoothing <= 0 {
		cfg.Smoothing = 0.1
	}
	if cfg.Window <= 0 {
		cfg.Window = 50
	}
	if cfg.MinOutcomes <= 0 {
		cfg.MinOutcomes = 5
	}
	if cfg.BootstrapAccuracy <= 0 {
		cfg.BootstrapAccuracy = 0.5
	}
	return &EMATrustModel{cfg: cfg, store: store}
}

// SetSnapshotCache injects a cache for weight snapshots.
func (m *EMATrustModel) SetSnapshotCache(c cache.Service) { m.snap = c }

// SetLogger injects a structured logger.
func (m *EMATrustModel) SetLogger(l *applogger.Logger) { m.l = l }

// RecordOutcome folds one resolved outcome into the source's rolling record.
// The record is created lazily on the first outcome and never deleted.
func (m *EMATrustModel) RecordOutcome(ctx context.Context, o *models.Outcome) error {
	h := domrepo.Horizon(o.Horizon)
	p, err := m.store.Get(ctx, o.SourceID, o.InstrumentID, h)
	if err != nil {
		return fmt.Errorf("load performance: %w", err)
	}
	if p == nil {
		p = &models.SourcePerformance{
			SourceID:     o.SourceID,
			InstrumentID: o.InstrumentID,
			Horizon:      o.Horizon,
		}
	}

	if o.WasCorrect {
		p.Wins++
	} else {
		p.Losses++
	}
	p.Total++

	p.Recent = append(p.Recent, o.WasCorrect)
	if len(p.Recent) > m.cfg.Window {
		p.Recent = p.Recent[len(p.Recent)-m.cfg.Window:]
	}
	p.RecentAccuracy = m.foldEMA(o.SourceID, p.Recent)
	p.UpdatedAt = o.ResolvedAt

	if err := m.store.Put(ctx, p); err != nil {
		return fmt.Errorf("save performance: %w", err)
	}

	if m.snap != nil {
		// invalidate the snapshot so the next read reflects this outcome
		_ = m.snap.Delete(ctx, snapshotKey(o.InstrumentID, h))
	}
	if m.l != nil {
		m.l.Debug("outcome recorded",
			applogger.String("source", o.SourceID),
			applogger.String("instrument", o.InstrumentID),
			applogger.String("horizon", o.Horizon),
			applogger.Bool("correct", o.WasCorrect))
	}
	return nil
}

// WeightsFor returns normalized trust weights for the sources with recorded
// outcomes on (instrument, horizon). Weights sum to 1 when any source exists.
func (m *EMATrustModel) WeightsFor(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (map[string]float64, error) {
	key := snapshotKey(instrumentID, horizon)
	if m.snap != nil {
		var cached map[string]float64
		if err := m.snap.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	perfs, err := m.store.ForKey(ctx, instrumentID, horizon)
	if err != nil {
		return nil, fmt.Errorf("load performances: %w", err)
	}
	if len(perfs) == 0 {
		return map[string]float64{}, nil
	}

	// stable iteration keeps float accumulation reproducible
	sort.Slice(perfs, func(i, j int) bool { return perfs[i].SourceID < perfs[j].SourceID })

	weights := make(map[string]float64, len(perfs))
	var total float64
	for _, p := range perfs {
		acc := p.RecentAccuracy
		if p.Total < m.cfg.MinOutcomes {
			acc = m.prior(p.SourceID)
		}
		weights[p.SourceID] = acc
		total += acc
	}
	if total > 0 {
		for src := range weights {
			weights[src] /= total
		}
	}

	if m.snap != nil {
		ttl := snapshotTTL(m.cfg.SnapshotTTLSecs)
		if err := m.snap.Set(ctx, key, weights, ttl); err != nil && m.l != nil {
			m.l.Warn("weight snapshot cache set failed", applogger.Error(err))
		}
	}
	return weights, nil
}

// Accuracies reports the raw per-source records alongside current weights,
// backing the accuracy report endpoint.
func (m *EMATrustModel) Accuracies(ctx context.Context, instrumentID string, horizon domrepo.Horizon) ([]models.SourceAccuracy, error) {
	perfs, err := m.store.ForKey(ctx, instrumentID, horizon)
	if err != nil {
		return nil, fmt.Errorf("load performances: %w", err)
	}
	weights, err := m.WeightsFor(ctx, instrumentID, horizon)
	if err != nil {
		return nil, err
	}

	out := make([]models.SourceAccuracy, 0, len(perfs))
	for _, p := range perfs {
		out = append(out, models.SourceAccuracy{
			SourceID:       p.SourceID,
			Wins:           p.Wins,
			Losses:         p.Losses,
			Total:          p.Total,
			RecentAccuracy: p.RecentAccuracy,
			TrustWeight:    weights[p.SourceID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

// foldEMA replays the outcome window through the EMA seeded at the source's
// prior, so the value is reproducible from stored state after restarts.
func (m *EMATrustModel) foldEMA(sourceID string, recent []bool) float64 {
	acc := m.prior(sourceID)
	for _, correct := range recent {
		x := 0.0
		if correct {
			x = 1.0
		}
		acc = acc*(1-m.cfg.Smoothing) + x*m.cfg.Smoothing
	}
	return acc
}

func (m *EMATrustModel) prior(sourceID string) float64 {
	if v, ok := m.cfg.Priors[sourceID]; ok && v > 0 {
		return v
	}
	return m.cfg.BootstrapAccuracy
}

func snapshotKey(instrumentID string, horizon domrepo.Horizon) string {
	return "weights:" + instrumentID + ":" + string(horizon)
}

func snapshotTTL(secs int) time.Duration {
	if secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}
