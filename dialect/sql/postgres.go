package sql

import (
	"github.com/syssam/arbor/dialect"

	sq "github.com/Masterminds/squirrel"
)

type postgresDialect struct{}

// Postgres returns the PostgreSQL dialect.
func Postgres() Dialect { return postgresDialect{} }

func (postgresDialect) Name() string { return dialect.Postgres }

func (d postgresDialect) BuildQuery(q *Query) (string, []any, error) { return buildQuery(d, q) }

// Rebind rewrites ? placeholders into $1, $2, ...
func (postgresDialect) Rebind(query string) (string, error) {
	return sq.Dollar.ReplacePlaceholders(query)
}

func (postgresDialect) Quote(ident string) string { return quoteWith(ident, `"`) }

func (postgresDialect) RegexpMatcher() string { return "~" }

// ConnectionErrorCodes returns the SQLSTATE codes of class 08
// (connection exception) and the admin/crash shutdown codes.
func (postgresDialect) ConnectionErrorCodes() []string {
	return []string{"08000", "08001", "08003", "08004", "08006", "57P01", "57P02", "57P03"}
}

func (d postgresDialect) IsConnectionError(err error) bool {
	return postgresConnectionError(err, d.ConnectionErrorCodes())
}

func (d postgresDialect) insertOptions() insertOptions {
	return insertOptions{quote: d.Quote, returning: true, conflict: standardConflict}
}

func (d postgresDialect) Insert(s *InsertStatement) (string, []any, error) {
	return buildInsert(d.insertOptions(), s)
}

func (d postgresDialect) BatchInsert(s *BatchInsertStatement) (string, []any, error) {
	return buildBatchInsert(d.insertOptions(), s)
}

func (d postgresDialect) InsertEmptyRow(table, primaryKey string) string {
	if primaryKey == "" {
		return "INSERT INTO " + table + " DEFAULT VALUES"
	}
	return "INSERT INTO " + table + " DEFAULT VALUES RETURNING " + d.Quote(primaryKey)
}

func (postgresDialect) writeLimit(b *Builder, q *Query) { writeLimitOffset(b, q) }

func (postgresDialect) writeLock(b *Builder) { b.WriteString(" FOR UPDATE") }

// writeDelete renders USING tables after the target; their join
// conditions lead the WHERE fragment.
func (postgresDialect) writeDelete(b *Builder, q *Query) {
	b.WriteString("DELETE FROM ").WriteString(q.Table)
	if q.Alias != "" {
		b.WriteString(" AS ").WriteString(q.Alias)
	}
	for i, j := range q.Using {
		if i == 0 {
			b.WriteString(" USING ")
		} else {
			b.WriteString(", ")
		}
		j.writeTable(b)
	}
	writeWhere(b, q.Using, q.Where)
	writeComment(b, q)
}
