package backoff_test

import (
	"testing"
	"time"

	"github.com/squareup/kvclient/backoff"
	"github.com/stretchr/testify/require"
)

func TestNoneIsExhaustedImmediately(t *testing.T) {
	s := backoff.None()
	require.True(t, s.IsNone())
	_, ok := s.NextDelay()
	require.False(t, ok)
}

func TestFixedYieldsMaxAttemptsThenExhausts(t *testing.T) {
	s := backoff.Fixed(time.Millisecond, 3)
	for i := 0; i < 3; i++ {
		d, ok := s.NextDelay()
		require.True(t, ok)
		require.Equal(t, time.Millisecond, d)
	}
	_, ok := s.NextDelay()
	require.False(t, ok)
}

func TestExponentialWithoutJitterIsDeterministic(t *testing.T) {
	s := backoff.Exponential(time.Millisecond, 100*time.Millisecond, 4, false)
	want := []time.Duration{1, 2, 4, 8}
	for i, w := range want {
		d, ok := s.NextDelay()
		require.True(t, ok, "attempt %d", i)
		require.Equal(t, w*time.Millisecond, d)
	}
	_, ok := s.NextDelay()
	require.False(t, ok)
}

func TestCloneStartsFreshBudget(t *testing.T) {
	s := backoff.Fixed(time.Millisecond, 1)
	_, ok := s.NextDelay()
	require.True(t, ok)
	_, ok = s.NextDelay()
	require.False(t, ok, "original schedule should be exhausted")

	fresh := backoff.Fixed(time.Millisecond, 1)
	clone := fresh.Clone()
	_, ok = clone.NextDelay()
	require.True(t, ok, "clone of an unused schedule should have its own full budget")
}
