package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffFirstAttemptIsImmediate(t *testing.T) {
	b := NewBackoff(DefaultBackoff, clock.NewMock())
	assert.Zero(t, b.Next())
	require.NoError(t, b.Wait(context.Background()))
}

func TestBackoffSpacesAttemptsFromLastStart(t *testing.T) {
	mock := clock.NewMock()
	b := NewBackoff(BackoffConfig{MinDelay: time.Second, MaxDelay: 8 * time.Second}, mock)

	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, time.Second, b.Next())

	mock.Add(400 * time.Millisecond)
	assert.Equal(t, 600*time.Millisecond, b.Next())

	mock.Add(time.Hour)
	assert.Zero(t, b.Next(), "a long session leaves nothing to wait for")
}

func TestBackoffDoublesUntilMaxAndResets(t *testing.T) {
	b := NewBackoff(BackoffConfig{MinDelay: time.Second, MaxDelay: 5 * time.Second}, clock.NewMock())

	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for _, w := range want {
		b.Failed()
		assert.Equal(t, w, b.Delay())
	}

	b.Reset()
	assert.Equal(t, time.Second, b.Delay())
}

func TestBackoffRateGuard(t *testing.T) {
	mock := clock.NewMock()
	b := NewBackoff(BackoffConfig{MaxAttempts: 3, Window: time.Minute}, mock)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Wait(context.Background()))
		mock.Add(time.Second)
	}
	// Three attempts at t=0,1,2s; the fourth may start when the first leaves the window.
	assert.Equal(t, 57*time.Second, b.Next())

	mock.Add(57 * time.Second)
	assert.Zero(t, b.Next())
}

func TestBackoffWaitUsesClock(t *testing.T) {
	mock := clock.NewMock()
	b := NewBackoff(BackoffConfig{MinDelay: 10 * time.Second, MaxDelay: 10 * time.Second}, mock)
	require.NoError(t, b.Wait(context.Background()))

	done := make(chan error, 1)
	go func() { done <- b.Wait(context.Background()) }()

	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case err := <-done:
			return err == nil
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBackoffWaitHonoursCancellation(t *testing.T) {
	mock := clock.NewMock()
	b := NewBackoff(BackoffConfig{MinDelay: time.Minute, MaxDelay: time.Minute}, mock)
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Wait(ctx), context.Canceled)
}

func TestBackoffMaxBelowMinIsRaised(t *testing.T) {
	b := NewBackoff(BackoffConfig{MinDelay: 3 * time.Second, MaxDelay: time.Second}, clock.NewMock())
	b.Failed()
	assert.Equal(t, 3*time.Second, b.Delay())
}
