package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MacroCompass/internal/domain/models"
	"MacroCompass/pkg/metrics"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	block    chan struct{}
	got      []string
}

func (s *flakySink) Deliver(_ context.Context, res *models.RegimeResult) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker down")
	}
	s.got = append(s.got, res.ID)
	return nil
}

func (s *flakySink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func result(id string, at time.Time) *models.RegimeResult {
	return &models.RegimeResult{ID: id, ComputedAt: at}
}

func TestEnqueueDeliversInBackground(t *testing.T) {
	sink := &flakySink{}
	p := NewSnapshotPipeline(sink, metrics.Nop{})
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Enqueue(result("a", time.Now())))
	require.Eventually(t, func() bool {
		return len(sink.delivered()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Pending())
}

func TestOnRefreshDoesNotWaitForSink(t *testing.T) {
	sink := &flakySink{block: make(chan struct{})}
	p := NewSnapshotPipeline(sink, metrics.Nop{})
	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		p.OnRefresh(context.Background(), result("a", time.Now()))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh hook blocked on the sink")
	}

	close(sink.block)
	require.Eventually(t, func() bool {
		return len(sink.delivered()) == 1
	}, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestEnqueueRejectsInvalid(t *testing.T) {
	p := NewSnapshotPipeline(&flakySink{}, metrics.Nop{})

	assert.Error(t, p.Enqueue(nil))
	assert.Error(t, p.Enqueue(result("", time.Now())))
	assert.Error(t, p.Enqueue(result("a", time.Time{})))
	assert.Zero(t, p.Pending())
}

func TestEnqueueDropsDuplicates(t *testing.T) {
	p := NewSnapshotPipeline(&flakySink{}, metrics.Nop{}, WithMinInterval(time.Minute))
	now := time.Now()

	require.NoError(t, p.Enqueue(result("a", now)))
	require.NoError(t, p.Enqueue(result("a", now)))
	require.NoError(t, p.Enqueue(result("b", now.Add(10*time.Second))))
	require.NoError(t, p.Enqueue(result("c", now.Add(2*time.Minute))))

	assert.Equal(t, 2, p.Pending())
}

func TestFailedDeliveryIsRetried(t *testing.T) {
	sink := &flakySink{failures: 2}
	p := NewSnapshotPipeline(sink, metrics.Nop{}, WithMaxBackoff(20*time.Millisecond))
	require.NoError(t, p.Enqueue(result("a", time.Now())))

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return len(sink.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, p.Pending())
}

func TestBufferOverflowDrops(t *testing.T) {
	p := NewSnapshotPipeline(&flakySink{}, metrics.Nop{}, WithBufferSize(1))
	now := time.Now()

	require.NoError(t, p.Enqueue(result("a", now)))
	assert.ErrorIs(t, p.Enqueue(result("b", now.Add(time.Second))), ErrBufferFull)
	assert.Equal(t, 1, p.Pending())
}

func TestStopFlushesBuffer(t *testing.T) {
	sink := &flakySink{block: make(chan struct{})}
	p := NewSnapshotPipeline(sink, metrics.Nop{})
	p.Start(context.Background())

	now := time.Now()
	require.NoError(t, p.Enqueue(result("a", now)))
	require.NoError(t, p.Enqueue(result("b", now.Add(time.Second))))
	close(sink.block)
	p.Stop()

	assert.Equal(t, []string{"a", "b"}, sink.delivered())
	assert.Zero(t, p.Pending())
}

func TestStopWithoutStart(t *testing.T) {
	p := NewSnapshotPipeline(&flakySink{}, metrics.Nop{})
	require.NoError(t, p.Enqueue(result("a", time.Now())))
	p.Stop()
	assert.Equal(t, 1, p.Pending())
}
