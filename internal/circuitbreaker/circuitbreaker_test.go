package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("rpc-test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}
	cb := circuitbreaker.New[int](cfg)

	boom := errors.New("dial tcp: connection refused")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	assert.True(t, cb.Open())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	calls := 0
	_, err := cb.Execute(func() (int, error) {
		calls++
		return 1, nil
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
	assert.Zero(t, calls, "open breaker must not invoke the call")
}

func TestCircuitBreaker_IsSuccessfulIgnoresExpectedErrors(t *testing.T) {
	revert := errors.New("execution reverted")
	cfg := circuitbreaker.DefaultConfig("call-test")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, revert) }
	cb := circuitbreaker.New[[]byte](cfg)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() ([]byte, error) { return nil, revert })
		require.ErrorIs(t, err, revert)
	}
	assert.False(t, cb.Open())
	assert.Equal(t, "call-test", cb.Name())
}
