// Package cache memoizes expensive aggregations under logical paths such as
// page/{id}. Entries have no TTL; they live until Revalidate removes them.
// A failing store never fails a request: reads and writes that error fall
// through to direct computation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store is the persistence behind the cache. Get reports a miss with
// ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Entry is the stored envelope around a computed value.
type Entry struct {
	Tag      string          `json:"tag"`
	StoredAt time.Time       `json:"storedAt"`
	Value    json.RawMessage `json:"value"`
}

type Cache struct {
	store  Store
	group  singleflight.Group
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.Mutex
	gen map[string]uint64
}

// New wraps store. A nil store disables caching entirely.
func New(store Store, logger zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
		gen:    map[string]uint64{},
	}
}

// Cached returns a deferred, cache-checked version of compute. On a hit the
// stored value is decoded and compute is not called. On a miss compute runs
// once per path across concurrent callers and a successful result is stored.
// Compute errors are returned and never cached.
//
// The shared compute runs detached from the caller's cancellation, so one
// caller going away neither fails the others nor stores a partial result.
// A caller whose context ends stops waiting and gets ctx.Err().
func Cached[T any](c *Cache, path, tag string, compute func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		if c == nil || c.store == nil {
			return compute(ctx)
		}
		if value, ok := read[T](ctx, c, path); ok {
			return value, nil
		}

		results := c.group.DoChan(path, func() (any, error) {
			detached := context.WithoutCancel(ctx)
			gen := c.generation(path)
			value, err := compute(detached)
			if err != nil {
				return nil, err
			}
			if c.generation(path) == gen {
				c.write(detached, path, tag, value)
			} else {
				c.logger.Debug().Str("path", path).Msg("cache write skipped after revalidate")
			}
			return value, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-results:
			if res.Err != nil {
				return zero, res.Err
			}
			value, ok := res.Val.(T)
			if !ok {
				return zero, fmt.Errorf("cache %s: shared result has type %T", path, res.Val)
			}
			return value, nil
		}
	}
}

func (c *Cache) generation(path string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[path]
}

func read[T any](ctx context.Context, c *Cache, path string) (T, bool) {
	var zero T
	raw, ok, err := c.store.Get(ctx, path)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache read failed")
		return zero, false
	}
	if !ok {
		c.logger.Debug().Str("path", path).Msg("cache miss")
		return zero, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache entry undecodable")
		return zero, false
	}
	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache value undecodable")
		return zero, false
	}
	c.logger.Debug().Str("path", path).Str("tag", entry.Tag).Msg("cache hit")
	return value, true
}

func (c *Cache) write(ctx context.Context, path, tag string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache value unencodable")
		return
	}
	raw, err := json.Marshal(Entry{Tag: tag, StoredAt: c.now().UTC(), Value: payload})
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache entry unencodable")
		return
	}
	if err := c.store.Set(ctx, path, raw); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cache write failed")
	}
}

// Revalidate drops the entries at paths so the next lookup recomputes.
// A compute already in flight for a path keeps serving its current callers
// but no longer stores its result or admits new ones. Failures are logged
// and otherwise ignored.
func (c *Cache) Revalidate(ctx context.Context, paths ...string) {
	if c == nil || c.store == nil {
		return
	}
	for _, path := range paths {
		c.mu.Lock()
		c.gen[path]++
		c.mu.Unlock()
		c.group.Forget(path)
		if err := c.store.Delete(ctx, path); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("cache revalidate failed")
			continue
		}
		c.logger.Info().Str("path", path).Msg("cache revalidated")
	}
}

// Enabled reports whether a store is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}
