package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TwoTier fronts an L2 Cache (normally Redis) with an in-process L1 LRU.
// A lookup checks L1 first; on an L1 miss it falls through to L2 and, on
// an L2 hit, backfills L1. This is the same shape as the teacher's
// classification service cache, applied to any detector that wants to
// avoid re-invoking an expensive check for content it has already seen.
type TwoTier struct {
	l1  *lru.Cache[string, []byte]
	l2  Cache
	ttl time.Duration
}

// NewTwoTier builds a TwoTier cache. l2 may be nil, in which case the
// cache degrades to an L1-only LRU (useful in tests and single-instance
// deployments that don't run Redis).
func NewTwoTier(l1Size int, l2 Cache, ttl time.Duration) (*TwoTier, error) {
	if l1Size <= 0 {
		l1Size = 1024
	}
	l1, err := lru.New[string, []byte](l1Size)
	if err != nil {
		return nil, err
	}
	return &TwoTier{l1: l1, l2: l2, ttl: ttl}, nil
}

// Get decodes the cached value for key into dest. It returns ErrNotFound
// (from this package) when neither tier has the key.
func (t *TwoTier) Get(ctx context.Context, key string, dest interface{}) error {
	if raw, ok := t.l1.Get(key); ok {
		return json.Unmarshal(raw, dest)
	}
	if t.l2 == nil {
		return ErrNotFound
	}
	if err := t.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	if raw, err := json.Marshal(dest); err == nil {
		t.l1.Add(key, raw)
	}
	return nil
}

// Set writes value to both tiers.
func (t *TwoTier) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	t.l1.Add(key, raw)
	if t.l2 == nil {
		return nil
	}
	return t.l2.Set(ctx, key, value, t.ttl)
}

// Purge drops everything from L1. L2 is left untouched; used by tests
// that want to force a cold L1 without reaching for a real Redis flush.
func (t *TwoTier) Purge() {
	t.l1.Purge()
}
