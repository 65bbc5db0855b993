package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/cache"
)

const (
	decisionKeyPrefix = "decision:"
	decisionIndexKey  = "decision:index"

	putLockTTL  = 5 * time.Second
	lockRetries = 10
	lockBackoff = 50 * time.Millisecond
)

// ErrPutContended is returned when the per-key write lock could not be
// acquired. Callers retry the whole evaluation rather than the write alone.
var ErrPutContended = errors.New("decision put: write lock contended")

// RedisDecisionStore keeps the active Decision per (instrument, horizon) in
// Redis. Writes go through a per-key lock so a committed record is replaced
// in one Set and readers never see a partial update. An index key tracks the
// active population for AllActive.
type RedisDecisionStore struct {
	cache cache.Service
}

func NewRedisDecisionStore(c cache.Service) domrepo.DecisionStore {
	return &RedisDecisionStore{cache: c}
}

func decisionKey(instrumentID string, horizon domrepo.Horizon) string {
	return decisionKeyPrefix + instrumentID + ":" + string(horizon)
}

// Get returns the active decision, or nil when none has been adopted yet.
func (s *RedisDecisionStore) Get(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Decision, error) {
	var d models.Decision
	err := s.cache.Get(ctx, decisionKey(instrumentID, horizon), &d)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decision get: %w", err)
	}
	return &d, nil
}

// Put atomically replaces the decision for its key. Records never expire;
// they are superseded, not evicted.
func (s *RedisDecisionStore) Put(ctx context.Context, d *models.Decision) error {
	if d == nil || d.InstrumentID == "" || d.Horizon == "" {
		return fmt.Errorf("decision put: incomplete record")
	}
	key := decisionKey(d.InstrumentID, domrepo.Horizon(d.Horizon))

	if err := s.lock(ctx, key); err != nil {
		return err
	}
	defer func() { _ = s.cache.Unlock(ctx, key+":lock") }()

	if err := s.cache.Set(ctx, key, d, 0); err != nil {
		return fmt.Errorf("decision put: %w", err)
	}
	return s.indexAdd(ctx, key)
}

// AllActive loads every decision currently in the index.
func (s *RedisDecisionStore) AllActive(ctx context.Context) ([]*models.Decision, error) {
	keys, err := s.indexKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	byKey, err := cache.MGetTyped[models.Decision](ctx, s.cache, keys...)
	if err != nil {
		return nil, fmt.Errorf("decision mget: %w", err)
	}

	out := make([]*models.Decision, 0, len(byKey))
	for _, k := range keys {
		if d, ok := byKey[k]; ok {
			cp := d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *RedisDecisionStore) Health(ctx context.Context) error {
	_, err := s.cache.Exists(ctx, decisionIndexKey)
	return err
}

func (s *RedisDecisionStore) Close() error { return nil }

func (s *RedisDecisionStore) lock(ctx context.Context, key string) error {
	for i := 0; i < lockRetries; i++ {
		ok, err := s.cache.TryLock(ctx, key+":lock", putLockTTL)
		if err != nil {
			return fmt.Errorf("decision lock: %w", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	return ErrPutContended
}

func (s *RedisDecisionStore) indexAdd(ctx context.Context, key string) error {
	if err := s.lock(ctx, decisionIndexKey); err != nil {
		return err
	}
	defer func() { _ = s.cache.Unlock(ctx, decisionIndexKey+":lock") }()

	keys, err := s.indexKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	keys = append(keys, key)
	sort.Strings(keys)
	if err := s.cache.Set(ctx, decisionIndexKey, keys, 0); err != nil {
		return fmt.Errorf("decision index set: %w", err)
	}
	return nil
}

func (s *RedisDecisionStore) indexKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.cache.Get(ctx, decisionIndexKey, &keys)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decision index get: %w", err)
	}
	return keys, nil
}
