package sql

import (
	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect"

	sq "github.com/Masterminds/squirrel"
)

type sqliteDialect struct{}

// SQLite returns the SQLite dialect.
func SQLite() Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string { return dialect.SQLite }

func (d sqliteDialect) BuildQuery(q *Query) (string, []any, error) { return buildQuery(d, q) }

func (sqliteDialect) Rebind(query string) (string, error) {
	return sq.Question.ReplacePlaceholders(query)
}

func (sqliteDialect) Quote(ident string) string { return quoteWith(ident, `"`) }

// RegexpMatcher returns REGEXP. The operator needs a user function
// registered with the connection.
func (sqliteDialect) RegexpMatcher() string { return "REGEXP" }

// ConnectionErrorCodes is empty: an embedded database has no connection
// to lose.
func (sqliteDialect) ConnectionErrorCodes() []string { return nil }

func (sqliteDialect) IsConnectionError(error) bool { return false }

func (d sqliteDialect) insertOptions() insertOptions {
	return insertOptions{quote: d.Quote, conflict: standardConflict}
}

func (d sqliteDialect) Insert(s *InsertStatement) (string, []any, error) {
	return buildInsert(d.insertOptions(), s)
}

func (d sqliteDialect) BatchInsert(s *BatchInsertStatement) (string, []any, error) {
	return buildBatchInsert(d.insertOptions(), s)
}

func (sqliteDialect) InsertEmptyRow(table, _ string) string {
	return "INSERT INTO " + table + " DEFAULT VALUES"
}

// writeLimit adds LIMIT -1 when only an offset is set; SQLite rejects a
// bare OFFSET.
func (sqliteDialect) writeLimit(b *Builder, q *Query) {
	if q.Offset > 0 && q.Limit <= 0 {
		b.WriteString(" LIMIT -1 OFFSET ").Arg(q.Offset)
		return
	}
	writeLimitOffset(b, q)
}

// writeLock is a no-op. SQLite locks the whole database inside a write
// transaction and has no FOR UPDATE.
func (sqliteDialect) writeLock(*Builder) {}

func (sqliteDialect) writeDelete(b *Builder, q *Query) {
	if len(q.Using) > 0 {
		b.AddError(arbor.NewUnsupportedError(dialect.SQLite, "delete using"))
		return
	}
	b.WriteString("DELETE FROM ").WriteString(q.Table)
	if q.Alias != "" {
		b.WriteString(" AS ").WriteString(q.Alias)
	}
	writeWhere(b, nil, q.Where)
	writeComment(b, q)
}
