package logger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu    sync.Mutex
	topic string
	batch []AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batch = append(p.batch, payload.([]AggregatedLogEntry)...)
	return nil
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("hello", String("k", "v"), Float64("composite", 0.25))
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("provider failed", String("source", "fred"), Error(errors.New("boom")))
	}
	assert.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batch, 1)
	assert.Equal(t, "logs", pub.topic)
	assert.Equal(t, 3, pub.batch[0].Count)
	assert.Equal(t, "provider failed", pub.batch[0].Message)
}

func TestCollectorFoldsWarningsAndRedactsKeys(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub, MinLevel: "warn"})

	// Same call site, differing only in ignored fields.
	for _, id := range []string{"a", "b"} {
		l.Warn("provider group fell back",
			String("group", "macro"),
			String("id", id),
			Error(errors.New(`Get "https://api.stlouisfed.org/fred/series/observations?api_key=secret&series_id=NFCI": timeout`)),
		)
	}
	l.Info("regime computed")
	assert.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batch, 1)
	assert.Equal(t, 2, pub.batch[0].Count)
	msg := pub.batch[0].Fields["error"].(string)
	assert.NotContains(t, msg, "secret")
	assert.Contains(t, msg, "api_key=REDACTED&series_id=NFCI")
}

func TestCollectorKeepsCallSitesApart(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub, MinLevel: "warn"})

	l.Warn("provider group fell back", String("group", "macro"))
	l.Warn("provider group fell back", String("group", "macro"))
	assert.Equal(t, 2, l.collector.Pending())
	l.RemoveCollector()
}

func TestCollectorSkipsWarningsByDefault(t *testing.T) {
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour})
	defer l.RemoveCollector()

	l.Warn("provider group fell back")
	assert.Zero(t, l.collector.Pending())
}
