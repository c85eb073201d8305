package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAllow_UnderAndOverLimit(t *testing.T) {
	l := New(Config{Max: 3, Window: time.Minute})

	for i := range 3 {
		d := l.Allow("alice", epoch.Add(time.Duration(i)*time.Second))
		require.True(t, d.Allowed, "event %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := l.Allow("alice", epoch.Add(5*time.Second))
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, epoch.Add(time.Minute), d.ResetAt)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New(Config{Max: 1, Window: time.Minute})

	assert.True(t, l.Allow("alice", epoch).Allowed)
	assert.True(t, l.Allow("bob", epoch).Allowed)
	assert.False(t, l.Allow("alice", epoch).Allowed)
}

func TestAllow_SlidingWindowWeightsPrevious(t *testing.T) {
	l := New(Config{Max: 4, Window: time.Minute})
	for range 4 {
		require.True(t, l.Allow("k", epoch).Allowed)
	}

	// A quarter into the next window, 3 of the previous 4 events still count.
	now := epoch.Add(time.Minute + 15*time.Second)
	d := l.Allow("k", now)
	require.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, l.Allow("k", now).Allowed)

	// Three quarters in, only one previous event counts.
	now = epoch.Add(time.Minute + 45*time.Second)
	d = l.Allow("k", now)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	// Two windows later everything is forgotten.
	now = epoch.Add(3 * time.Minute)
	d = l.Allow("k", now)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining)
}

func TestReset(t *testing.T) {
	l := New(Config{Max: 1, Window: time.Minute})
	require.True(t, l.Allow("alice", epoch).Allowed)
	require.False(t, l.Allow("alice", epoch).Allowed)

	l.Reset("alice")
	assert.True(t, l.Allow("alice", epoch).Allowed)
}

func TestCleanup(t *testing.T) {
	l := New(Config{Max: 1, Window: time.Minute})
	l.Allow("old", epoch)
	l.Allow("new", epoch.Add(90*time.Second))

	l.Cleanup(epoch.Add(2 * time.Minute))

	assert.Equal(t, 1, l.len())
	assert.Equal(t, 1, l.Max())
}

func TestStartCleanup_ZeroWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(Config{Max: 1, Window: 0})
	assert.NotPanics(t, func() { l.StartCleanup(ctx) })
}
