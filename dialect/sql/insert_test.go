package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor"
)

func TestInsert(t *testing.T) {
	stmt := &InsertStatement{
		Table:     "products",
		Columns:   []string{"name", "price"},
		Values:    []any{"b", 5},
		Returning: "id",
	}
	want := map[string]string{
		"mysql":    "INSERT INTO `products` (`name`,`price`) VALUES (?,?)",
		"postgres": `INSERT INTO "products" ("name","price") VALUES (?,?) RETURNING "id"`,
		"sqlite":   `INSERT INTO "products" ("name","price") VALUES (?,?)`,
	}
	for _, d := range dialects {
		t.Run(d.Name(), func(t *testing.T) {
			query, args, err := d.Insert(stmt)
			require.NoError(t, err)
			assert.Equal(t, want[d.Name()], query)
			assert.Equal(t, []any{"b", 5}, args)
		})
	}
}

func TestInsert_Conflict(t *testing.T) {
	ignore := &InsertStatement{
		Table:    "products",
		Columns:  []string{"name"},
		Values:   []any{"b"},
		Conflict: &OnConflict{Action: ConflictIgnore, Columns: []string{"name"}},
	}
	update := &InsertStatement{
		Table:    "products",
		Columns:  []string{"name", "price"},
		Values:   []any{"b", 5},
		Conflict: &OnConflict{Action: ConflictUpdate, Columns: []string{"name"}, Update: []string{"price"}},
	}
	tests := []struct {
		d    Dialect
		stmt *InsertStatement
		want string
	}{
		{MySQL(), ignore, "INSERT IGNORE INTO `products` (`name`) VALUES (?)"},
		{MySQL(), update, "INSERT INTO `products` (`name`,`price`) VALUES (?,?) ON DUPLICATE KEY UPDATE `price` = VALUES(`price`)"},
		{Postgres(), ignore, `INSERT INTO "products" ("name") VALUES (?) ON CONFLICT ("name") DO NOTHING`},
		{Postgres(), update, `INSERT INTO "products" ("name","price") VALUES (?,?) ON CONFLICT ("name") DO UPDATE SET "price" = excluded."price"`},
		{SQLite(), update, `INSERT INTO "products" ("name","price") VALUES (?,?) ON CONFLICT ("name") DO UPDATE SET "price" = excluded."price"`},
	}
	for _, tt := range tests {
		query, _, err := tt.d.Insert(tt.stmt)
		require.NoError(t, err)
		assert.Equal(t, tt.want, query)
	}
}

func TestInsert_Malformed(t *testing.T) {
	_, _, err := Postgres().Insert(&InsertStatement{Table: "products", Columns: []string{"name"}})
	assert.ErrorIs(t, err, arbor.ErrMalformedQuery)

	_, _, err = Postgres().Insert(&InsertStatement{Table: "products"})
	assert.ErrorIs(t, err, arbor.ErrMalformedQuery)
}

func TestBatchInsert(t *testing.T) {
	stmt := &BatchInsertStatement{
		Table:     "products",
		Columns:   []string{"name", "price"},
		Rows:      [][]any{{"a", 1}, {"b", 2}},
		Returning: "id",
	}

	t.Run("Postgres", func(t *testing.T) {
		query, args, err := Postgres().BatchInsert(stmt)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "products" ("name","price") VALUES (?,?),(?,?) RETURNING "id"`, query)
		assert.Equal(t, []any{"a", 1, "b", 2}, args)
	})

	t.Run("SQLite", func(t *testing.T) {
		query, _, err := SQLite().BatchInsert(stmt)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "products" ("name","price") VALUES (?,?),(?,?)`, query)
	})

	t.Run("MySQL", func(t *testing.T) {
		_, _, err := MySQL().BatchInsert(stmt)
		require.Error(t, err)
		assert.ErrorIs(t, err, arbor.ErrUnsupported)
		assert.Equal(t, "arbor: batch insert not supported in mysql", err.Error())
	})

	t.Run("RowWidth", func(t *testing.T) {
		_, _, err := Postgres().BatchInsert(&BatchInsertStatement{
			Table:   "products",
			Columns: []string{"name", "price"},
			Rows:    [][]any{{"a"}},
		})
		assert.ErrorIs(t, err, arbor.ErrMalformedQuery)
	})
}

func TestInsertEmptyRow(t *testing.T) {
	assert.Equal(t, "INSERT INTO products VALUES ()", MySQL().InsertEmptyRow("products", "id"))
	assert.Equal(t, `INSERT INTO products DEFAULT VALUES RETURNING "id"`, Postgres().InsertEmptyRow("products", "id"))
	assert.Equal(t, "INSERT INTO products DEFAULT VALUES", Postgres().InsertEmptyRow("products", ""))
	assert.Equal(t, "INSERT INTO products DEFAULT VALUES", SQLite().InsertEmptyRow("products", "id"))
}
