package repository

import (
	"context"
	"time"

	"MacroCompass/internal/domain/models"
)

// MacroSource serves macroeconomic series. Values are returned oldest first
// with missing observations dropped. Implementations return
// models.ErrNoCredential without network I/O when unconfigured.
type MacroSource interface {
	SeriesValues(ctx context.Context, seriesID string, limit int) ([]float64, error)
}

// PriceSource serves daily closes for a basket, aligned on one date index.
type PriceSource interface {
	DailyCloses(ctx context.Context, tickers []string) (*models.PriceSeries, error)
}

// SentimentSource serves the most recent news sentiment scores.
type SentimentSource interface {
	SentimentScores(ctx context.Context, limit int) ([]float64, error)
}

// SnapshotStore persists regime snapshots for the history endpoint.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.Snapshot) error
	Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SnapshotPublisher emits regime snapshots as events.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.Snapshot) error
	Close() error
}

// SharedCache mirrors the latest result between replicas.
type SharedCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

type Metrics interface {
	RecordFetch(source string, fallback bool)
	RecordCache(hit bool)
	RecordComposite(composite float64, components []models.ComponentScore)
	RecordSnapshot(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
