// Package ratelimit implements a per-key sliding window counter.
//
// Each key keeps the counts of the current and the previous fixed window. The
// effective count weights the previous window by how much of it still overlaps
// the sliding window ending now.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	// Max is the number of events allowed per window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// Limiter tracks events per key. It is safe for concurrent use.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a Limiter for cfg.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// Max returns the configured limit.
func (l *Limiter) Max() int { return l.cfg.Max }

// Allow records an event for key at now if the key is under the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{currStart: now}
		l.entries[key] = e
	}

	if now.Sub(e.currStart) >= l.cfg.Window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(l.cfg.Window)
		if now.Sub(e.prevStart) >= 2*l.cfg.Window {
			e.prevCount = 0
		}
	}

	overlap := 1.0 - now.Sub(e.currStart).Seconds()/l.cfg.Window.Seconds()
	effective := e.prevCount*max(overlap, 0) + e.currCount
	resetAt := e.currStart.Add(l.cfg.Window)

	if effective >= float64(l.cfg.Max) {
		return Decision{ResetAt: resetAt}
	}
	e.currCount++
	return Decision{
		Allowed:   true,
		Remaining: max(int(float64(l.cfg.Max)-effective-1), 0),
		ResetAt:   resetAt,
	}
}

// Reset forgets key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)
}

// Cleanup removes keys whose windows have fully expired.
func (l *Limiter) Cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.Sub(e.currStart) >= 2*l.cfg.Window {
			delete(l.entries, key)
		}
	}
}

// StartCleanup runs Cleanup every two windows until ctx is cancelled. It
// does nothing for a non-positive window.
func (l *Limiter) StartCleanup(ctx context.Context) {
	if l.cfg.Window <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(2 * l.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Cleanup(now)
			}
		}
	}()
}

func (l *Limiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
