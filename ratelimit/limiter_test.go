package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacingUnderConcurrency(t *testing.T) {
	const (
		n        = 4
		interval = 50 * time.Millisecond
	)

	l := New(func(o *Options) { o.MinInterval = interval })

	var (
		mu    sync.Mutex
		grants []time.Time
		wg    sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, n)

	var first, last time.Time
	for _, g := range grants {
		if first.IsZero() || g.Before(first) {
			first = g
		}
		if g.After(last) {
			last = g
		}
	}

	assert.GreaterOrEqual(t, last.Sub(first), (n-1)*interval-5*time.Millisecond)
}

func TestLimiter_AcquireCancellation(t *testing.T) {
	l := New(func(o *Options) { o.MinInterval = time.Minute })

	// Consume the initial token.
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.Error(t, err)
}

func TestLimiter_PenaltyGrowsAndCaps(t *testing.T) {
	l := New()

	assert.Equal(t, time.Duration(0), l.Penalty())

	l.RecordError()
	assert.Equal(t, 500*time.Millisecond, l.Penalty())

	l.RecordError()
	l.RecordError()
	assert.Equal(t, 1500*time.Millisecond, l.Penalty())

	for i := 0; i < 20; i++ {
		l.RecordError()
	}
	assert.Equal(t, 5*time.Second, l.Penalty())
	assert.Equal(t, 23, l.RecentErrors())
}

func TestLimiter_DefaultInterval(t *testing.T) {
	l := New(func(o *Options) { o.MinInterval = -1 })
	require.NotNil(t, l)

	// First acquisition is immediate.
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
