package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurst(t *testing.T) {
	// Near-zero refill so the burst is all we get.
	l := New(0.001, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "token %d", i)
	}
	assert.False(t, l.Allow())
}

func TestAllowRefills(t *testing.T) {
	l := New(1000, 1)
	require.True(t, l.Allow())
	assert.False(t, l.Allow())
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestWaitReturnsImmediatelyWithTokens(t *testing.T) {
	l := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	l := New(0.001, 1)
	require.True(t, l.Allow()) // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClampsInvalidArgs(t *testing.T) {
	l := New(-5, 0)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}
