package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGroup(Config{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	boom := errors.New("boom")
	calls := 0
	fail := func() (int, error) { calls++; return 0, boom }

	_, err := Execute(context.Background(), g, "fred", fail)
	require.ErrorIs(t, err, boom)
	_, err = Execute(context.Background(), g, "fred", fail)
	require.ErrorIs(t, err, boom)

	_, err = Execute(context.Background(), g, "fred", fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
	assert.Equal(t, gobreaker.StateOpen, g.State("fred"))
	assert.Equal(t, gobreaker.StateClosed, g.State("yahoo"))
}

func TestExecuteReturnsValue(t *testing.T) {
	g := NewGroup(Config{}, nil)
	v, err := Execute(context.Background(), g, "yahoo", func() ([]float64, error) { return []float64{1, 2}, nil })
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)

	v, err = Execute[[]float64](context.Background(), nil, "yahoo", func() ([]float64, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCancelledCallsDoNotTrip(t *testing.T) {
	g := NewGroup(Config{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	done, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Execute(done, g, "fred", func() (int, error) { calls++; return 0, nil })
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, calls)

	// The caller goes away while the request is in flight.
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := Execute(ctx, g, "fred", func() (int, error) {
			cancel()
			return 0, ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State("fred"))

	v, err := Execute(context.Background(), g, "fred", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
