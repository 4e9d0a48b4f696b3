package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/domain/repository"
	pkgkafka "MacroCompass/pkg/kafka"
)

const snapshotColumns = "id, computed_at, composite, liquidity, credit, monetary_conditions, growth, risk_appetite, sentiment, " +
	"driver_status, plumbing_status, growth_status, momentum_status, correlation_status, payload"

// ClickHouseSnapshotStore implements SnapshotStore for ClickHouse.
type ClickHouseSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshotStore creates the store. table may be qualified
// with a database name.
func NewClickHouseSnapshotStore(db *sql.DB, table string) *ClickHouseSnapshotStore {
	return &ClickHouseSnapshotStore{db: db, table: table}
}

// SnapshotSchema returns the DDL for the snapshot table.
func SnapshotSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id String,
	computed_at DateTime64(3, 'UTC'),
	composite Float64,
	liquidity Float64,
	credit Float64,
	monetary_conditions Float64,
	growth Float64,
	risk_appetite Float64,
	sentiment Float64,
	driver_status LowCardinality(String),
	plumbing_status LowCardinality(String),
	growth_status LowCardinality(String),
	momentum_status LowCardinality(String),
	correlation_status LowCardinality(String),
	payload String CODEC(ZSTD)
) ENGINE = ReplacingMergeTree
ORDER BY (computed_at, id)`, table)
}

func (s *ClickHouseSnapshotStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SnapshotSchema(s.table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func snapshotArgs(sn *models.Snapshot) []interface{} {
	return []interface{}{
		sn.ID,
		sn.ComputedAt.UTC(),
		sn.Composite,
		sn.Liquidity,
		sn.Credit,
		sn.MonetaryConditions,
		sn.Growth,
		sn.RiskAppetite,
		sn.Sentiment,
		sn.DriverStatus,
		sn.PlumbingStatus,
		sn.GrowthStatus,
		sn.MomentumStatus,
		sn.CorrelationStatus,
		sn.Payload,
	}
}

const snapshotPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

func (s *ClickHouseSnapshotStore) Store(ctx context.Context, sn *models.Snapshot) error {
	if sn == nil || sn.ID == "" {
		return fmt.Errorf("snapshot without id")
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, snapshotColumns, snapshotPlaceholders)
	_, err := s.db.ExecContext(ctx, q, snapshotArgs(sn)...)
	return err
}

// Query returns snapshots newest first. Zero from/to leave that side open.
func (s *ClickHouseSnapshotStore) Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error) {
	var (
		where []string
		args  []interface{}
	)
	if !from.IsZero() {
		where = append(where, "computed_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "computed_at <= ?")
		args = append(args, to.UTC())
	}
	q := fmt.Sprintf("SELECT %s FROM %s FINAL", snapshotColumns, s.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY computed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []*models.Snapshot{}
	for rows.Next() {
		var sn models.Snapshot
		if err := rows.Scan(
			&sn.ID, &sn.ComputedAt, &sn.Composite,
			&sn.Liquidity, &sn.Credit, &sn.MonetaryConditions, &sn.Growth, &sn.RiskAppetite, &sn.Sentiment,
			&sn.DriverStatus, &sn.PlumbingStatus, &sn.GrowthStatus, &sn.MomentumStatus, &sn.CorrelationStatus,
			&sn.Payload,
		); err != nil {
			return nil, err
		}
		snaps = append(snaps, &sn)
	}
	return snaps, rows.Err()
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // Managed by pkg
}

// KafkaSnapshotPublisher implements SnapshotPublisher for Kafka.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates Kafka publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

// Publish sends s keyed by its id.
func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.Snapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.ID), s)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ repository.SnapshotStore     = (*ClickHouseSnapshotStore)(nil)
	_ repository.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
)
