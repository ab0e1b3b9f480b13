package ratelimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/utils/logging"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int

	// ResetAt is when the oldest in-window entry expires, or now+window
	// when the window is empty.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait. Zero when
	// allowed.
	RetryAfter time.Duration
}

// Limiter is an exact sliding-window rate limiter: every admitted request's
// timestamp is kept in the backing cache for one window, so window-boundary
// behavior is precise rather than bucket-approximated. Denied requests are
// not recorded and do not extend the window.
//
// State lives entirely in the cache with a TTL of one window, so it
// self-cleans and needs no in-process locks. A cache failure admits the
// request: availability over strictness.
type Limiter struct {
	cache  adapter.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

// WithClock replaces the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(cache adapter.Cache, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		cache:  cache,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

const keyPrefix = "ratelimit:"

// Admit decides whether one request from the given identifier may proceed.
// It never returns an error: cache failures are logged and fail open.
func (l *Limiter) Admit(ctx context.Context, id string) *Decision {
	now := l.now()
	key := keyPrefix + id

	raw, err := l.cache.Get(ctx, key)
	if err != nil {
		logging.From(ctx).Warn("rate limit cache read failed, admitting request",
			"id", id, "error", err)
		return l.failOpen(now)
	}

	var stamps []int64
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stamps); err != nil {
			logging.From(ctx).Warn("rate limit state is corrupt, resetting window",
				"id", id, "error", err)
			stamps = nil
		}
	}

	cutoff := now.Add(-l.window).UnixMilli()
	kept := make([]int64, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	allowed := len(kept) < l.limit
	if allowed {
		kept = append(kept, now.UnixMilli())
	}

	if buf, err := json.Marshal(kept); err == nil {
		if err := l.cache.Set(ctx, key, buf, l.window); err != nil {
			logging.From(ctx).Warn("rate limit cache write failed",
				"id", id, "error", err)
		}
	}

	resetAt := now.Add(l.window)
	if len(kept) > 0 {
		resetAt = time.UnixMilli(kept[0]).Add(l.window)
	}

	remaining := l.limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}

	decision := &Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !allowed {
		decision.RetryAfter = resetAt.Sub(now)
	}
	return decision
}

func (l *Limiter) failOpen(now time.Time) *Decision {
	remaining := l.limit - 1
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}
}
