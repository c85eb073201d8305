package mindicador

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RateSource returns the CLP value of one US dollar.
type RateSource interface {
	DollarRate(ctx context.Context) (decimal.Decimal, error)
}

// Cache keeps the last fetched rate for ttl. Concurrent misses share one
// upstream request. A failed refresh falls back to the previous rate, if any.
type Cache struct {
	src   RateSource
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu   sync.Mutex
	rate decimal.Decimal
	at   time.Time
}

// NewCache wraps src.
func NewCache(src RateSource, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

func (c *Cache) cached() (decimal.Decimal, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate, c.at
}

// DollarRate returns the cached rate or fetches a fresh one. The shared
// fetch outlives a cancelled caller so other waiters still get its result.
func (c *Cache) DollarRate(ctx context.Context) (decimal.Decimal, error) {
	rate, at := c.cached()
	if !at.IsZero() && c.now().Sub(at) < c.ttl {
		return rate, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("dolar", func() (any, error) {
		fresh, err := c.src.DollarRate(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.rate, c.at = fresh, c.now()
		c.mu.Unlock()
		return fresh, nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(decimal.Decimal), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if !at.IsZero() {
		return rate, nil
	}
	return decimal.Zero, err
}
