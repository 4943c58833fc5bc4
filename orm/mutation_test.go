package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
)

func newMockClient(t *testing.T, name string) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	reg, err := model.NewRegistry(schemas()...)
	require.NoError(t, err)
	c, err := NewClient(sql.OpenDB(name, db), reg)
	require.NoError(t, err)
	return c, mock
}

func TestClient_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Postgres", func(t *testing.T) {
		c, mock := newMockClient(t, dialect.Postgres)
		mock.ExpectQuery(`INSERT INTO "products" ("name","description") VALUES ($1,$2) RETURNING "id"`).
			WithArgs("iphone", "none").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
		m, err := c.New("Product", map[string]any{"name": "iphone"})
		require.NoError(t, err)
		require.NoError(t, c.Insert(ctx, m))
		assert.Equal(t, int64(12), m.Get("id"))
		assert.Equal(t, "none", m.Get("description"), "defaults are stored on the model")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MySQL", func(t *testing.T) {
		c, mock := newMockClient(t, dialect.MySQL)
		mock.ExpectExec("INSERT INTO `products` (`name`,`description`,`id_category`) VALUES (?,?,?)").
			WithArgs("iphone", "black", 8).
			WillReturnResult(sqlmock.NewResult(3, 1))
		m, err := c.New("Product", map[string]any{"name": "iphone", "description": "black", "id_category": 8})
		require.NoError(t, err)
		require.NoError(t, c.Insert(ctx, m))
		assert.Equal(t, int64(3), m.Get("id"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyRow", func(t *testing.T) {
		c, mock := newMockClient(t, dialect.Postgres)
		mock.ExpectQuery(`INSERT INTO categories DEFAULT VALUES RETURNING "id"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		m, err := c.New("Category", nil)
		require.NoError(t, err)
		require.NoError(t, c.Insert(ctx, m))
		assert.Equal(t, int64(1), m.Get("id"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Constraint", func(t *testing.T) {
		c, mock := newMockClient(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "categories" ("name","id") VALUES (?,?)`).
			WithArgs("phones", 1).
			WillReturnError(errors.New("UNIQUE constraint failed: categories.id"))
		m, err := c.New("Category", map[string]any{"name": "phones", "id": 1})
		require.NoError(t, err)
		err = c.Insert(ctx, m)
		require.Error(t, err)
		assert.True(t, arbor.IsMutationError(err))
		assert.True(t, arbor.IsConstraintError(err))
		assert.Contains(t, err.Error(), "arbor: insert Category")
	})
}

func TestClient_Callbacks(t *testing.T) {
	ctx := context.Background()
	var calls []string
	errInvalid := errors.New("name is required")
	reg, err := model.NewRegistry(model.Schema{
		Name:   "Category",
		Fields: []string{"name", "id_parent"},
		BeforeSave: []model.Callback{func(_ context.Context, m model.Model) error {
			calls = append(calls, "before")
			if m.Get("name") == nil {
				return errInvalid
			}
			return nil
		}},
		AfterSave: []model.Callback{func(_ context.Context, m model.Model) error {
			calls = append(calls, "after")
			return nil
		}},
	})
	require.NoError(t, err)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	c, err := NewClient(sql.OpenDB(dialect.MySQL, db), reg)
	require.NoError(t, err)

	m, err := c.New("Category", nil)
	require.NoError(t, err)
	err = c.Insert(ctx, m)
	assert.ErrorIs(t, err, errInvalid)
	assert.Equal(t, []string{"before"}, calls)

	mock.ExpectExec("INSERT INTO `categories` (`name`) VALUES (?)").
		WithArgs("phones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	m.Set("name", "phones")
	require.NoError(t, c.Save(ctx, m))

	mock.ExpectExec("UPDATE categories set name = ? WHERE id = ?").
		WithArgs("mobiles", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.Set("name", "mobiles")
	require.NoError(t, c.Save(ctx, m))
	assert.Equal(t, []string{"before", "before", "after", "before", "after"}, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Update(t *testing.T) {
	ctx := context.Background()
	c, mock := newMockClient(t, dialect.Postgres)
	mock.ExpectExec("UPDATE categories set name = $1, id_parent = $2 WHERE id = $3").
		WithArgs("mobiles", nil, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m, err := c.New("Category", map[string]any{"id": 8, "name": "mobiles", "id_parent": nil})
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, m))
	require.NoError(t, mock.ExpectationsWereMet())

	err = c.Update(ctx, mustNew(t, c, "Category", map[string]any{"name": "x"}))
	assert.ErrorIs(t, err, arbor.ErrConfiguration, "update needs a primary key")
}

func mustNew(t *testing.T, c *Client, name string, attrs map[string]any) model.Model {
	t.Helper()
	m, err := c.New(name, attrs)
	require.NoError(t, err)
	return m
}

func TestClient_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	seed(t, c)

	t.Run("FindByID", func(t *testing.T) {
		m, err := c.FindByID(ctx, "Category", 8)
		require.NoError(t, err)
		assert.Equal(t, "phones", m.Get("name"))

		_, err = c.FindByID(ctx, "Category", 100)
		assert.True(t, arbor.IsNotFound(err))
		assert.Equal(t, "arbor: Category not found (id=100)", err.Error())
	})

	t.Run("FindByIDs", func(t *testing.T) {
		ms, err := c.FindByIDs(ctx, "Product", 3, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"ipad", "iphone", "galaxy"}, names(ms))

		_, err = c.FindByIDs(ctx, "Product", 1, 50, 60)
		var agg *arbor.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 2)
		assert.True(t, arbor.IsNotFound(err))
	})

	t.Run("SaveAndDelete", func(t *testing.T) {
		m := mustNew(t, c, "Product", map[string]any{"name": "pixel", "id_category": int64(8)})
		require.NoError(t, c.Save(ctx, m))
		id := m.Get("id")
		require.NotNil(t, id)

		m.Set("name", "pixel 2")
		require.NoError(t, c.Save(ctx, m))
		got, err := c.FindByID(ctx, "Product", id)
		require.NoError(t, err)
		assert.Equal(t, "pixel 2", got.Get("name"))
		assert.Equal(t, "none", got.Get("description"))

		require.NoError(t, c.Delete(ctx, m))
		err = c.Delete(ctx, m)
		assert.True(t, arbor.IsNotFound(err))
		assert.True(t, arbor.IsMutationError(err))
	})
}

func TestClient_Transaction(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	seed(t, c)
	errAbort := errors.New("abort")

	err := c.Transaction(ctx, func(tx *Client) error {
		require.NoError(t, tx.Insert(ctx, mustNew(t, tx, "Product", map[string]any{"name": "pixel"})))
		n, err := tx.Query("Product").Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)
		return tx.Transaction(ctx, func(inner *Client) error {
			assert.Same(t, tx, inner)
			return errAbort
		})
	})
	assert.ErrorIs(t, err, errAbort)
	n, err := c.Query("Product").Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n, "rolled back")

	err = c.Transaction(ctx, func(tx *Client) error {
		assert.Error(t, tx.Close())
		return tx.Insert(ctx, mustNew(t, tx, "Product", map[string]any{"name": "pixel"}))
	})
	require.NoError(t, err)
	n, err = c.Query("Product").Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
