package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "macrocompass",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
	})
	assert.Equal(t, "clickhouse://default:p%40ss@ch:9000/macrocompass?dial_timeout=5s", dsn)

	httpDSN := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	assert.Contains(t, httpDSN, "http://u:@ch:8123/db")
}

func TestInitSchemaRunsStatementsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewClientWithDB(db, "macrocompass")
	defer c.Close()

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.InitSchema(context.Background(), []string{
		"CREATE DATABASE IF NOT EXISTS macrocompass",
		"CREATE TABLE IF NOT EXISTS macrocompass.t (id String) ENGINE = Memory",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	require.Error(t, err)
}

func TestBuildDSNConnectsThroughDefaultWhenCreating(t *testing.T) {
	cfg := defaultClientConfig()
	WithHost("ch")(cfg)
	WithDatabase("macrocompass")(cfg)
	WithCreateDatabase(true)(cfg)
	WithMaxExecutionTime(10 * time.Second)(cfg)

	dsn := buildDSN(*cfg)
	assert.Contains(t, dsn, "@ch:9000/default?")
	assert.Contains(t, dsn, "max_execution_time=10")
}
