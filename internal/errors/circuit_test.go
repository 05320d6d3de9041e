package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker("vector", WithMaxFailures(3))
	boom := stderrors.New("backend down")

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, cb.State())
		err := cb.Execute(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	// Open circuit fails fast without invoking the function.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("vector", WithMaxFailures(3))
	boom := stderrors.New("backend down")

	require.Error(t, cb.Execute(func() error { return boom }))
	require.Error(t, cb.Execute(func() error { return boom }))
	require.NoError(t, cb.Execute(func() error { return nil }))

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker("vector",
		WithMaxFailures(1),
		WithResetTimeout(10*time.Millisecond))
	boom := stderrors.New("backend down")

	require.Error(t, cb.Execute(func() error { return boom }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())

	t.Run("failed probe reopens", func(t *testing.T) {
		err := cb.Execute(func() error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("successful probe closes", func(t *testing.T) {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestExecuteWithFallback(t *testing.T) {
	cb := NewCircuitBreaker("vector", WithMaxFailures(1), WithResetTimeout(time.Minute))
	boom := stderrors.New("backend down")

	// Closed state passes errors through without the fallback.
	got, err := ExecuteWithFallback(cb,
		func() ([]string, error) { return nil, boom },
		func() ([]string, error) { return []string{"fallback"}, nil })
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)

	// Now open: the fallback serves the result.
	require.Equal(t, StateOpen, cb.State())
	got, err = ExecuteWithFallback(cb,
		func() ([]string, error) { t.Fatal("must not be called"); return nil, nil },
		func() ([]string, error) { return []string{"fallback"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, got)
}
