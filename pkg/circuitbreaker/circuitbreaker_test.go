package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 3, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(failing), errBoom)
	}

	err := cb.Execute(succeeding)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker test is open")
}

func TestClosesAfterSuccessfulProbe(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 1, Timeout: time.Millisecond})

	require.ErrorIs(t, cb.Execute(failing), errBoom)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, cb.Execute(succeeding))
	require.NoError(t, cb.Execute(succeeding))
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 2, Timeout: time.Hour})

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	require.NoError(t, cb.Execute(succeeding))
	require.ErrorIs(t, cb.Execute(failing), errBoom)

	// One more failure is needed to open again.
	require.ErrorIs(t, cb.Execute(failing), errBoom)
	err := cb.Execute(succeeding)
	require.Error(t, err)
}
