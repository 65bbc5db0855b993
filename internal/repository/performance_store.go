package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/cache"
)

const perfKeyPrefix = "perf:"

// RedisPerformanceStore persists per-source reliability records in Redis.
// A per-(instrument, horizon) index lists the sources with recorded history
// so ForKey can load them in one round trip.
type RedisPerformanceStore struct {
	cache cache.Service
}

func NewRedisPerformanceStore(c cache.Service) domrepo.PerformanceStore {
	return &RedisPerformanceStore{cache: c}
}

func perfKey(sourceID, instrumentID string, horizon domrepo.Horizon) string {
	return perfKeyPrefix + sourceID + ":" + instrumentID + ":" + string(horizon)
}

func perfIndexKey(instrumentID string, horizon domrepo.Horizon) string {
	return perfKeyPrefix + "index:" + instrumentID + ":" + string(horizon)
}

// Get returns the record, or nil when the source has no history yet.
func (s *RedisPerformanceStore) Get(ctx context.Context, sourceID, instrumentID string, horizon domrepo.Horizon) (*models.SourcePerformance, error) {
	var p models.SourcePerformance
	err := s.cache.Get(ctx, perfKey(sourceID, instrumentID, horizon), &p)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("performance get: %w", err)
	}
	return &p, nil
}

func (s *RedisPerformanceStore) Put(ctx context.Context, p *models.SourcePerformance) error {
	if p == nil || p.SourceID == "" || p.InstrumentID == "" || p.Horizon == "" {
		return fmt.Errorf("performance put: incomplete record")
	}
	h := domrepo.Horizon(p.Horizon)
	if err := s.cache.Set(ctx, perfKey(p.SourceID, p.InstrumentID, h), p, 0); err != nil {
		return fmt.Errorf("performance put: %w", err)
	}
	return s.indexAdd(ctx, p.SourceID, p.InstrumentID, h)
}

// ForKey returns every source's record for one (instrument, horizon) pair.
func (s *RedisPerformanceStore) ForKey(ctx context.Context, instrumentID string, horizon domrepo.Horizon) ([]*models.SourcePerformance, error) {
	sources, err := s.indexSources(ctx, instrumentID, horizon)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}

	keys := make([]string, len(sources))
	for i, src := range sources {
		keys[i] = perfKey(src, instrumentID, horizon)
	}
	byKey, err := cache.MGetTyped[models.SourcePerformance](ctx, s.cache, keys...)
	if err != nil {
		return nil, fmt.Errorf("performance mget: %w", err)
	}

	out := make([]*models.SourcePerformance, 0, len(byKey))
	for _, k := range keys {
		if p, ok := byKey[k]; ok {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *RedisPerformanceStore) Close() error { return nil }

func (s *RedisPerformanceStore) indexAdd(ctx context.Context, sourceID, instrumentID string, horizon domrepo.Horizon) error {
	sources, err := s.indexSources(ctx, instrumentID, horizon)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src == sourceID {
			return nil
		}
	}
	sources = append(sources, sourceID)
	sort.Strings(sources)
	if err := s.cache.Set(ctx, perfIndexKey(instrumentID, horizon), sources, 0); err != nil {
		return fmt.Errorf("performance index set: %w", err)
	}
	return nil
}

func (s *RedisPerformanceStore) indexSources(ctx context.Context, instrumentID string, horizon domrepo.Horizon) ([]string, error) {
	var sources []string
	err := s.cache.Get(ctx, perfIndexKey(instrumentID, horizon), &sources)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("performance index get: %w", err)
	}
	return sources, nil
}
