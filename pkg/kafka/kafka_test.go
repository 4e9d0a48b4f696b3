package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	applogger "MacroCompass/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type countingHandler struct {
	topic string
	fails int
	calls int
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.calls <= h.fails {
		return errors.New("transient")
	}
	return nil
}

func TestProducerEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "snapshots", []byte("id-1"), map[string]float64{"composite": 0.5}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "snapshots", w.msgs[0].Topic)
	assert.Equal(t, []byte("id-1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"composite":0.5}`, string(w.msgs[0].Value))
}

func TestProducerWrapsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducerWithWriter(w, "gzip")

	err := p.PublishMessage(context.Background(), "logs", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewConsumer(applogger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{topic: "snapshots", fails: 2}
	c.RegisterHandler(h)
	r := &fakeReader{}
	c.readers["snapshots"] = r

	c.process(kafka.Message{Topic: "snapshots", Value: []byte("{}")})

	assert.Equal(t, 3, h.calls)
	assert.Len(t, r.committed, 1)
}

func TestConsumerSendsExhaustedMessagesToDLQ(t *testing.T) {
	c := newTestConsumer(t, WithConsumerDLQ("snapshots.dlq"))
	dlq := &fakeWriter{}
	c.dlq = dlq
	h := &countingHandler{topic: "snapshots", fails: 100}
	c.RegisterHandler(h)
	r := &fakeReader{}
	c.readers["snapshots"] = r

	var hookErrs int
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, error) { hookErrs++ }})

	c.process(kafka.Message{Topic: "snapshots", Value: []byte("bad")})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, 2, hookErrs)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "snapshots.dlq", dlq.msgs[0].Topic)
	assert.Len(t, r.committed, 1)
}

func TestConsumerStartStop(t *testing.T) {
	c := newTestConsumer(t)
	c.RegisterHandler(&countingHandler{topic: "snapshots"})
	c.newReader = func(string) messageReader { return &fakeReader{} }

	require.NoError(t, c.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
