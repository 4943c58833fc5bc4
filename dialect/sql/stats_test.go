package sql

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor/dialect"
)

func TestStatsDriver(t *testing.T) {
	ctx := context.Background()
	drv, mock := newMock(t, dialect.Postgres)

	var slow []string
	stats := NewStatsDriver(drv,
		WithSlowThreshold(-1),
		WithErrorClassifier(Postgres()),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, stats.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE FROM products").WillReturnError(&pq.Error{Code: "57P01"})
	require.Error(t, stats.Exec(ctx, "DELETE FROM products", []any{}, nil))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products set name = $1").WithArgs("b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	tx, err := stats.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "UPDATE products set name = $1", []any{"b"}, nil))
	require.NoError(t, tx.Commit())

	snap := stats.QueryStats().Stats()
	assert.EqualValues(t, 1, snap.TotalQueries)
	assert.EqualValues(t, 2, snap.TotalExecs)
	assert.EqualValues(t, 1, snap.Errors)
	assert.EqualValues(t, 1, snap.ConnectionErrors)
	assert.EqualValues(t, 3, snap.SlowQueries)
	assert.Equal(t, []string{"SELECT 1", "DELETE FROM products", "UPDATE products set name = $1"}, slow)
	assert.Contains(t, snap.String(), "queries=1 execs=2")

	stats.QueryStats().Reset()
	assert.Zero(t, stats.QueryStats().Stats().TotalQueries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriver_Threshold(t *testing.T) {
	drv, _ := newMock(t, dialect.SQLite)
	stats := NewStatsDriver(drv)
	assert.Equal(t, 100*time.Millisecond, stats.SlowThreshold())
	stats.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, stats.SlowThreshold())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
	assert.Equal(t, time.Second, StatsSnapshot{TotalQueries: 1, TotalExecs: 1, TotalDuration: 2 * time.Second}.AvgQueryDuration())
}

func TestSlowQueryLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv, mock := newMock(t, dialect.MySQL)
	stats := NewStatsDriver(drv, WithSlowThreshold(-1), WithSlowQueryLog(logger))

	query := "SELECT products.id AS products_id, products.name AS products_name FROM products /* orm:model */"
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"products_id", "products_name"}))
	rows := &Rows{}
	require.NoError(t, stats.Query(context.Background(), query, []any{}, rows))
	require.NoError(t, rows.Close())

	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "SELECT products.* FROM products")
}

func TestDebugDriver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv, mock := newMock(t, dialect.SQLite)
	debug := NewDebugDriver(drv, logger)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, debug.Exec(ctx, "DELETE FROM products", []any{}, nil))

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err := debug.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	out := buf.String()
	assert.Contains(t, out, "msg=exec")
	assert.Contains(t, out, `sql="DELETE FROM products"`)
	assert.Contains(t, out, "begin transaction")
	assert.Contains(t, out, "rollback transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}
