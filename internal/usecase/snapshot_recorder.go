package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroCompass/internal/domain/models"
	drepo "MacroCompass/internal/domain/repository"
	applogger "MacroCompass/pkg/logger"
)

// Snapshot backends.
const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// SnapshotRecorder routes every freshly computed regime to the configured
// backend. Failures are logged and counted; they never reach the caller.
type SnapshotRecorder struct {
	pub     drepo.SnapshotPublisher
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	log     *applogger.Logger
	backend string
	timeout time.Duration
}

// NewSnapshotRecorder creates a recorder. pub and store may be nil when the
// backend does not use them.
func NewSnapshotRecorder(
	pub drepo.SnapshotPublisher,
	store drepo.SnapshotStore,
	metrics drepo.Metrics,
	log *applogger.Logger,
	backend string,
) *SnapshotRecorder {
	if backend == "" {
		backend = BackendNone
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &SnapshotRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		log:     log,
		backend: backend,
		timeout: 10 * time.Second,
	}
}

// Backend returns the configured backend name.
func (r *SnapshotRecorder) Backend() string { return r.backend }

// Record flattens res and hands it to the backend.
func (r *SnapshotRecorder) Record(ctx context.Context, res *models.RegimeResult) {
	if err := r.Deliver(ctx, res); err != nil {
		r.metrics.RecordError("snapshot_record")
		r.log.Error("record regime snapshot",
			applogger.String("backend", r.backend),
			applogger.String("id", res.ID),
			applogger.Error(err),
		)
	}
}

// Deliver is Record with the error returned instead of logged.
func (r *SnapshotRecorder) Deliver(ctx context.Context, res *models.RegimeResult) error {
	if r.backend == BackendNone || res == nil {
		return nil
	}
	snap, err := models.NewSnapshot(res)
	if err != nil {
		return err
	}

	// The request that triggered the recompute may finish first.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	switch r.backend {
	case BackendKafka:
		if r.pub == nil {
			return fmt.Errorf("kafka backend without publisher")
		}
		err = r.pub.Publish(ctx, snap)
	case BackendClickHouse:
		if r.store == nil {
			return fmt.Errorf("clickhouse backend without store")
		}
		err = r.store.Store(ctx, snap)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	r.metrics.RecordSnapshot(r.backend)
	r.metrics.RecordLatency("record_snapshot", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *SnapshotRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
