package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"MacroCompass/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(id string, at time.Time) *models.Snapshot {
	return &models.Snapshot{
		ID:             id,
		ComputedAt:     at,
		Composite:      0.1,
		Liquidity:      0.25,
		PlumbingStatus: "STABLE",
		Payload:        `{"id":"` + id + `"}`,
	}
}

func TestSnapshotStoreInitCreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS macrocompass.regime_snapshots (")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewClickHouseSnapshotStore(db, "macrocompass.regime_snapshots")
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sn := snapshot("a", at)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO regime_snapshots (id, computed_at, composite")).
		WithArgs("a", at, 0.1, 0.25, 0.0, 0.0, 0.0, 0.0, 0.0, "", "STABLE", "", "", "", sn.Payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewClickHouseSnapshotStore(db, "regime_snapshots")
	require.NoError(t, s.Store(context.Background(), sn))
	assert.Error(t, s.Store(context.Background(), &models.Snapshot{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := from.Add(2 * time.Hour)
	older := from.Add(time.Hour)

	cols := []string{"id", "computed_at", "composite", "liquidity", "credit", "monetary_conditions", "growth",
		"risk_appetite", "sentiment", "driver_status", "plumbing_status", "growth_status", "momentum_status",
		"correlation_status", "payload"}
	rows := sqlmock.NewRows(cols).
		AddRow("b", newer, 0.2, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, "", "CAUTION", "", "", "", "{}").
		AddRow("a", older, 0.1, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, "", "STABLE", "", "", "", "{}")

	mock.ExpectQuery(regexp.QuoteMeta("FROM regime_snapshots FINAL WHERE computed_at >= ? ORDER BY computed_at DESC LIMIT ?")).
		WithArgs(from, 10).
		WillReturnRows(rows)

	s := NewClickHouseSnapshotStore(db, "regime_snapshots")
	got, err := s.Query(context.Background(), from, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "CAUTION", got[0].PlumbingStatus)
	assert.True(t, got[1].ComputedAt.Equal(older))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreQueryOpenRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM regime_snapshots FINAL ORDER BY computed_at DESC LIMIT ?")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := NewClickHouseSnapshotStore(db, "regime_snapshots").Query(context.Background(), time.Time{}, time.Time{}, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
