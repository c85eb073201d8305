package mindicador

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
	rate  decimal.Decimal
	err   error
}

func (s *countingSource) DollarRate(context.Context) (decimal.Decimal, error) {
	s.calls.Add(1)
	return s.rate, s.err
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	src := &countingSource{rate: decimal.NewFromInt(950)}
	c := NewCache(src, time.Hour)
	c.now = func() time.Time { return now }

	rate, err := c.DollarRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "950", rate.String())

	_, err = c.DollarRate(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	// Expired: refresh.
	now = now.Add(2 * time.Hour)
	src.rate = decimal.NewFromInt(960)
	rate, err = c.DollarRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "960", rate.String())
	assert.EqualValues(t, 2, src.calls.Load())

	// Refresh failure keeps the stale rate.
	now = now.Add(2 * time.Hour)
	src.err = errors.New("timeout")
	rate, err = c.DollarRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "960", rate.String())
}

func TestCache_NoRate(t *testing.T) {
	src := &countingSource{err: ErrNoDollar}
	_, err := NewCache(src, time.Hour).DollarRate(context.Background())
	require.ErrorIs(t, err, ErrNoDollar)
}

type blockingSource struct {
	started   chan struct{}
	release   chan struct{}
	calls     atomic.Int32
	cancelled atomic.Bool
}

func (s *blockingSource) DollarRate(ctx context.Context) (decimal.Decimal, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-s.release:
		return decimal.NewFromInt(950), nil
	case <-ctx.Done():
		s.cancelled.Store(true)
		return decimal.Zero, ctx.Err()
	}
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(src, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.DollarRate(ctx)
		first <- err
	}()
	<-src.started

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	time.AfterFunc(20*time.Millisecond, func() { close(src.release) })
	rate, err := c.DollarRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "950", rate.String())
	assert.False(t, src.cancelled.Load())
	assert.EqualValues(t, 1, src.calls.Load())
}
