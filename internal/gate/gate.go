// Package gate bounds every upstream call: at most Limit admissions per
// Interval and at most MaxConcurrent calls in flight. Waiters are admitted in
// FIFO order. Failures never cross the gate as errors; callers get ok=false.
package gate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type Config struct {
	Limit         int
	Interval      time.Duration
	MaxConcurrent int
}

type Gate struct {
	limiter *rate.Limiter
	slots   *semaphore.Weighted
	logger  zerolog.Logger

	admitted atomic.Int64
	failed   atomic.Int64
}

type Stats struct {
	Admitted int64 `json:"admitted"`
	Failed   int64 `json:"failed"`
}

func New(cfg Config, logger zerolog.Logger) *Gate {
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = cfg.Limit
	}
	every := rate.Every(cfg.Interval / time.Duration(cfg.Limit))
	return &Gate{
		limiter: rate.NewLimiter(every, cfg.Limit),
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:  logger.With().Str("component", "gate").Logger(),
	}
}

func (g *Gate) Stats() Stats {
	return Stats{Admitted: g.admitted.Load(), Failed: g.failed.Load()}
}

// Call runs fn once it is admitted. Any error, panic or context cancellation
// is logged and reported as ok=false with the zero value. There is no retry.
func Call[T any](ctx context.Context, g *Gate, op string, fn func(context.Context) (T, error)) (result T, ok bool) {
	var zero T
	if err := g.slots.Acquire(ctx, 1); err != nil {
		g.fail(op, err)
		return zero, false
	}
	defer g.slots.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		g.fail(op, err)
		return zero, false
	}
	g.admitted.Add(1)

	defer func() {
		if r := recover(); r != nil {
			g.fail(op, fmt.Errorf("panic: %v", r))
			result, ok = zero, false
		}
	}()

	value, err := fn(ctx)
	if err != nil {
		g.fail(op, err)
		return zero, false
	}
	return value, true
}

func (g *Gate) fail(op string, err error) {
	g.failed.Add(1)
	g.logger.Warn().Err(err).Str("op", op).Msg("upstream call failed")
}
