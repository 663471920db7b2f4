// Package ratelimit implements a fixed-window request counter keyed by client
// address. State is process-local; a multi-instance deployment needs a shared
// counting store instead.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type entry struct {
	count   int
	resetAt time.Time
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	max     int
	window  time.Duration
	now     func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Allow admits or rejects one request from key. A window opens on the first
// request and rejections carry the time left until it resets.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return Decision{Allowed: true}
	}

	if e.count >= l.max {
		return Decision{Allowed: false, RetryAfter: e.resetAt.Sub(now)}
	}

	e.count++
	return Decision{Allowed: true}
}

// StartJanitor prunes expired windows on the given interval until ctx is
// cancelled. Stale entries are self-correcting on next access even without
// pruning; this only bounds memory.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := l.prune()
				if removed > 0 {
					log.Debug().Int("removed", removed).Msg("ratelimit: pruned expired entries")
				}
			}
		}
	}()
}

func (l *Limiter) prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
