package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("smtp")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Minute
	cb := New(cfg, nil)

	failing := func() error { return errors.New("connection refused") }

	require.Error(t, cb.Do(context.Background(), failing))
	require.Error(t, cb.Do(context.Background(), failing))
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Do(context.Background(), func() error {
		called = true
		return nil
	})
	assert.True(t, IsOpen(err))
	assert.False(t, called)
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	cfg := DefaultConfig("sms")
	cfg.FailureThreshold = 1
	cb := New(cfg, nil)

	err := cb.Do(context.Background(), func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_ExecuteReturnsResult(t *testing.T) {
	cb := New(DefaultConfig("ai"), nil)

	out, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "ai", cb.Name())
}
