package sql

import (
	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect"

	sq "github.com/Masterminds/squirrel"
)

// mysqlMaxLimit is the documented way of writing OFFSET without LIMIT.
const mysqlMaxLimit = "18446744073709551615"

type mysqlDialect struct{}

// MySQL returns the MySQL dialect.
func MySQL() Dialect { return mysqlDialect{} }

func (mysqlDialect) Name() string { return dialect.MySQL }

func (d mysqlDialect) BuildQuery(q *Query) (string, []any, error) { return buildQuery(d, q) }

func (mysqlDialect) Rebind(query string) (string, error) {
	return sq.Question.ReplacePlaceholders(query)
}

func (mysqlDialect) Quote(ident string) string { return quoteWith(ident, "`") }

func (mysqlDialect) RegexpMatcher() string { return "REGEXP" }

// ConnectionErrorCodes returns the client errors for a refused socket,
// a refused host, a server gone away and a connection lost mid-query.
func (mysqlDialect) ConnectionErrorCodes() []string {
	return []string{"2002", "2003", "2006", "2013"}
}

func (d mysqlDialect) IsConnectionError(err error) bool {
	return mysqlConnectionError(err, d.ConnectionErrorCodes())
}

func (d mysqlDialect) insertOptions() insertOptions {
	return insertOptions{
		quote: d.Quote,
		conflict: func(c *OnConflict, quote func(string) string) (string, string) {
			if c.Action == ConflictIgnore || len(c.Update) == 0 {
				return "IGNORE", ""
			}
			suffix := "ON DUPLICATE KEY UPDATE "
			for i, col := range c.Update {
				if i > 0 {
					suffix += ", "
				}
				suffix += quote(col) + " = VALUES(" + quote(col) + ")"
			}
			return "", suffix
		},
	}
}

func (d mysqlDialect) Insert(s *InsertStatement) (string, []any, error) {
	return buildInsert(d.insertOptions(), s)
}

// BatchInsert is not supported: MySQL cannot return the generated keys of
// a multi-row insert.
func (mysqlDialect) BatchInsert(*BatchInsertStatement) (string, []any, error) {
	return "", nil, arbor.NewUnsupportedError(dialect.MySQL, "batch insert")
}

func (mysqlDialect) InsertEmptyRow(table, _ string) string {
	return "INSERT INTO " + table + " VALUES ()"
}

func (mysqlDialect) writeLimit(b *Builder, q *Query) {
	if q.Offset > 0 && q.Limit <= 0 {
		b.WriteString(" LIMIT " + mysqlMaxLimit + " OFFSET ").Arg(q.Offset)
		return
	}
	writeLimitOffset(b, q)
}

func (mysqlDialect) writeLock(b *Builder) { b.WriteString(" FOR UPDATE") }

// writeDelete names the target table explicitly when an alias or using
// clauses are present: DELETE alias FROM table alias INNER JOIN ...
func (mysqlDialect) writeDelete(b *Builder, q *Query) {
	if q.Alias == "" && len(q.Using) == 0 {
		b.WriteString("DELETE FROM ").WriteString(q.Table)
	} else {
		b.WriteString("DELETE ").WriteString(q.FromAlias()).WriteString(" FROM ").WriteString(q.Table)
		if q.Alias != "" {
			b.WriteByte(' ').WriteString(q.Alias)
		}
		for _, j := range q.Using {
			b.WriteString(" INNER JOIN ")
			j.writeTable(b)
			b.WriteString(" ON ")
			j.writeCondition(b)
		}
	}
	writeWhere(b, nil, q.Where)
	writeComment(b, q)
}
