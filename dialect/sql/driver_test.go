package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor/dialect"
)

func TestDriverDialect(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{dialect.Postgres, dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{dialect.SQLite, dialect.SQLite},
		{"sqlite3", dialect.SQLite},
		{"postgres-traced", dialect.Postgres},
		{"clickhouse", "clickhouse"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Equal(t, tt.want, drv.Dialect())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("Rows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM users WHERE id = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows))
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Alice", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ErrorUnchanged", func(t *testing.T) {
		dbErr := errors.New("relation users does not exist")
		mock.ExpectQuery("SELECT").WillReturnError(dbErr)

		err := drv.Query(context.Background(), "SELECT 1", []any{}, &Rows{})
		assert.Same(t, dbErr, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidTypes", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", []any{}, new(int))
		assert.ErrorContains(t, err, "expect *sql.Rows")
		err = drv.Query(context.Background(), "SELECT 1", 1, &Rows{})
		assert.ErrorContains(t, err, "expect []any for args")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	t.Run("Result", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WithArgs("Alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 3))

		var res Result
		require.NoError(t, drv.Exec(context.Background(), "UPDATE users set name = ? WHERE id = ?", []any{"Alice", 1}, &res))
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("NilResult", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
	})

	t.Run("ErrorUnchanged", func(t *testing.T) {
		dbErr := errors.New("constraint violation")
		mock.ExpectExec("DELETE").WillReturnError(dbErr)
		err := drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil)
		assert.Same(t, dbErr, err)
	})

	t.Run("InvalidResult", func(t *testing.T) {
		err := drv.Exec(context.Background(), "DELETE FROM users", []any{}, new(int))
		assert.ErrorContains(t, err, "expect *sql.Result")
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO products").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "INSERT INTO products DEFAULT VALUES", []any{}, nil))
		require.NoError(t, tx.Commit())
	})

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		rows := &Rows{}
		require.NoError(t, tx.Query(context.Background(), "SELECT id FROM products", []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, tx.Rollback())
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, OpenDB(dialect.Postgres, db).Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func BenchmarkDriver(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	b.Run("Query", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			rows := &Rows{}
			_ = drv.Query(context.Background(), "SELECT 1", []any{}, rows)
			rows.Close()
		}
	})
}
