package orm

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/config"
	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
)

func TestNewClient(t *testing.T) {
	reg, err := model.NewRegistry(schemas()...)
	require.NoError(t, err)
	drv, err := sql.Open(dialect.SQLite, "file:"+filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer drv.Close()

	c, err := NewClient(drv, reg)
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, c.Dialect().Name())
	assert.Same(t, reg, c.Registry())
	assert.Equal(t, config.DefaultFetchBatchSize, c.batchSize)
	_, ok := c.Stats()
	assert.False(t, ok)

	c, err = NewClient(drv, reg, WithDialect(sql.Postgres()), WithFetchBatchSize(10))
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, c.Dialect().Name())
	assert.Equal(t, 10, c.batchSize)

	for _, opt := range []Option{WithFetchBatchSize(0), WithLogger(nil), WithDialect(nil)} {
		_, err = NewClient(drv, reg, opt)
		assert.ErrorIs(t, err, arbor.ErrConfiguration)
	}
	_, err = NewClient(nil, reg)
	assert.ErrorIs(t, err, arbor.ErrConfiguration)
	_, err = NewClient(sql.OpenDB("oracle", drv.DB()), reg)
	assert.ErrorIs(t, err, arbor.ErrConfiguration)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	reg, err := model.NewRegistry(schemas()...)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "shop.db")
	cfg.Stats = true
	cfg.Debug = true

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := Open(cfg, reg, WithLogger(logger))
	require.NoError(t, err)
	defer c.Close()

	for _, stmt := range ddl {
		require.NoError(t, c.Driver().Exec(ctx, stmt, []any{}, nil))
	}
	seed(t, c)
	_, err = c.Query("Category").With("products").FetchAll(ctx)
	require.NoError(t, err)

	stats, ok := c.Stats()
	require.True(t, ok)
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 9, stats.TotalExecs)
	assert.Contains(t, buf.String(), "SELECT categories.* FROM categories", "debug logs humanized SQL")
	assert.Contains(t, buf.String(), "msg=\"batch load\"")

	cfg.FetchBatchSize = 0
	_, err = Open(cfg, reg)
	assert.Error(t, err)
}
