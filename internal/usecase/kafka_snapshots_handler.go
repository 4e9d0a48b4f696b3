package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	pkgkafka "MacroCompass/pkg/kafka"
)

// KafkaSnapshotsHandler consumes regime snapshot events and writes them to
// the history store.
type KafkaSnapshotsHandler struct {
	topic   string
	storage domrepo.SnapshotStore
	metrics domrepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, storage domrepo.SnapshotStore, metrics domrepo.Metrics) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var s models.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if s.ID == "" || s.ComputedAt.IsZero() {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("snapshot missing id or computed_at")
	}
	h.metrics.RecordLatency("snapshot_e2e_seconds", time.Since(s.ComputedAt).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &s)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSnapshot("clickhouse")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
