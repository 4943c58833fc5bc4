package sql

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/syssam/arbor/dialect"
)

// Executor binds a Query and a Dialect to a connection. It is the only
// component of the query layer that talks to the database.
type Executor struct {
	conn    dialect.ExecQuerier
	dialect Dialect
	query   *Query
}

// Prepare returns an Executor for q.
func Prepare(conn dialect.ExecQuerier, d Dialect, q *Query) *Executor {
	return &Executor{conn: conn, dialect: d, query: q}
}

// Dialect returns the bound dialect.
func (e *Executor) Dialect() Dialect {
	return e.dialect
}

// SQL renders the bound query in the driver's placeholder form.
func (e *Executor) SQL() (string, []any, error) {
	query, args, err := e.dialect.BuildQuery(e.query)
	if err != nil {
		return "", nil, err
	}
	query, err = e.dialect.Rebind(query)
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

func (e *Executor) rows(ctx context.Context) (*Rows, error) {
	query, args, err := e.SQL()
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := e.conn.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Rows returns every row as a column name to value map, regardless of
// the query's fetch mode.
func (e *Executor) Rows(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	for row, err := range e.Iterate(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Iterate streams rows as maps. Rows are read lazily and the cursor is
// closed when iteration ends or the consumer stops early.
func (e *Executor) Iterate(ctx context.Context) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		rows, err := e.rows(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			row := make(map[string]any)
			if err := sqlx.MapScan(rows, row); err != nil {
				yield(nil, err)
				return
			}
			normalizeMap(row)
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FetchAll returns every row shaped by the query's FetchMode: a map for
// FetchAssoc, a slice for FetchNum and the first column for FetchColumn.
func (e *Executor) FetchAll(ctx context.Context) ([]any, error) {
	var out []any
	for row, err := range e.FetchIterator(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Fetch returns the first row shaped by the query's FetchMode, or nil
// when the result is empty.
func (e *Executor) Fetch(ctx context.Context) (any, error) {
	for row, err := range e.FetchIterator(ctx) {
		return row, err
	}
	return nil, nil
}

// FetchIterator streams rows shaped by the query's FetchMode.
func (e *Executor) FetchIterator(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		rows, err := e.rows(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanRow(rows, e.query.FetchMode)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func scanRow(rows *Rows, mode FetchMode) (any, error) {
	switch mode {
	case FetchNum, FetchColumn:
		vs, err := sqlx.SliceScan(rows)
		if err != nil {
			return nil, err
		}
		for i := range vs {
			vs[i] = normalize(vs[i])
		}
		if mode == FetchColumn {
			if len(vs) == 0 {
				return nil, nil
			}
			return vs[0], nil
		}
		return vs, nil
	default:
		row := make(map[string]any)
		if err := sqlx.MapScan(rows, row); err != nil {
			return nil, err
		}
		normalizeMap(row)
		return row, nil
	}
}

// Count runs the query as COUNT and returns the scalar. Ordering is
// dropped; it cannot change a count and Postgres rejects it.
func (e *Executor) Count(ctx context.Context) (int64, error) {
	q := e.query.Clone()
	q.Type = TypeCount
	q.Order = nil
	q.FetchMode = FetchColumn
	v, err := Prepare(e.conn, e.dialect, q).Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return ToInt64(v)
}

// Execute runs the statement and returns the number of affected rows.
func (e *Executor) Execute(ctx context.Context) (int64, error) {
	query, args, err := e.SQL()
	if err != nil {
		return 0, err
	}
	var res Result
	if err := e.conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete runs the query as DELETE and returns the number of deleted rows.
func (e *Executor) Delete(ctx context.Context) (int64, error) {
	q := e.query.Clone()
	q.Type = TypeDelete
	return Prepare(e.conn, e.dialect, q).Execute(ctx)
}

// ToInt64 converts a scanned numeric value to int64.
func ToInt64(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("dialect/sql: cannot convert %T to int64", v)
	}
}

// normalize turns driver byte slices into strings. MySQL returns text
// columns as []byte.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func normalizeMap(row map[string]any) {
	for k, v := range row {
		row[k] = normalize(v)
	}
}
