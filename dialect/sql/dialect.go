package sql

import (
	"strings"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect"
)

// Dialect renders a Query into SQL text for one database. Rendered SQL
// uses ? placeholders; Rebind converts them for drivers that need it.
type Dialect interface {
	// Name returns the dialect name, one of the dialect package constants.
	Name() string
	// BuildQuery renders q. Arguments are returned in placeholder order.
	BuildQuery(q *Query) (string, []any, error)
	// Rebind rewrites ? placeholders into the driver's native form.
	Rebind(query string) (string, error)
	// Quote quotes an identifier.
	Quote(ident string) string
	// RegexpMatcher returns the regular expression match operator.
	RegexpMatcher() string
	// ConnectionErrorCodes returns the driver error codes that indicate a
	// lost or refused connection.
	ConnectionErrorCodes() []string
	// IsConnectionError reports whether err is a connection-level failure.
	IsConnectionError(err error) bool
	// Insert renders a single row INSERT.
	Insert(s *InsertStatement) (string, []any, error)
	// BatchInsert renders a multi-row INSERT.
	BatchInsert(s *BatchInsertStatement) (string, []any, error)
	// InsertEmptyRow renders an INSERT with no explicit values.
	InsertEmptyRow(table, primaryKey string) string
}

// renderer holds the per-dialect fragment overrides.
type renderer interface {
	Dialect
	writeLimit(b *Builder, q *Query)
	writeLock(b *Builder)
	writeDelete(b *Builder, q *Query)
}

// ForName returns the dialect for a configuration value. Besides the
// dialect package constants it accepts a few common spellings.
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case dialect.MySQL, "mysqldialect", "mariadb":
		return MySQL(), nil
	case dialect.Postgres, "postgresql", "postgresdialect", "pgx":
		return Postgres(), nil
	case dialect.SQLite, "sqlite3", "sqlite3dialect":
		return SQLite(), nil
	default:
		return nil, &arbor.ConfigError{Msg: "unknown sql dialect " + strings.TrimSpace(name)}
	}
}

func buildQuery(r renderer, q *Query) (string, []any, error) {
	b := NewBuilder(r)
	switch q.Type {
	case TypeUpdate:
		writeUpdate(b, q)
	case TypeDelete:
		r.writeDelete(b, q)
	default:
		writeRead(r, b, q)
	}
	return b.Query()
}

// writeRead writes SELECT and COUNT statements. Fragment order:
// select, from, join, where, group by, order, limit, offset, lock, comment.
func writeRead(r renderer, b *Builder, q *Query) {
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	writeColumns(b, q)
	b.WriteString(" FROM ").WriteString(q.Table)
	if q.Alias != "" {
		b.WriteString(" AS ").WriteString(q.Alias)
	}
	for _, j := range q.Joins {
		b.WriteByte(' ')
		j.Build(b)
	}
	writeWhere(b, nil, q.Where)
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ").WriteString(strings.Join(q.GroupBy, ", "))
	}
	if len(q.Order) > 0 {
		b.WriteString(" ORDER BY ").WriteString(strings.Join(q.Order, ", "))
	}
	r.writeLimit(b, q)
	if q.LockForUpdate {
		r.writeLock(b)
	}
	writeComment(b, q)
}

func writeColumns(b *Builder, q *Query) {
	switch {
	case q.Type == TypeCount:
		b.WriteString("count(*)")
	case len(q.Columns) == 0:
		b.WriteString("*")
	default:
		for i, c := range q.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Expr)
			if c.Alias != "" {
				b.WriteString(" AS ").WriteString(c.Alias)
			}
		}
	}
}

// writeWhere writes the WHERE fragment. Using conditions come first.
func writeWhere(b *Builder, using []*JoinClause, where []WhereClause) {
	first := true
	sep := func() {
		if first {
			b.WriteString(" WHERE ")
			first = false
			return
		}
		b.WriteString(" AND ")
	}
	for _, j := range using {
		sep()
		j.writeCondition(b)
	}
	for _, c := range where {
		if c == nil || c.IsEmpty() {
			continue
		}
		sep()
		c.Build(b)
	}
}

// writeUpdate writes `UPDATE table set a = ?, b = ?` followed by WHERE.
func writeUpdate(b *Builder, q *Query) {
	if len(q.UpdateAttributes) == 0 {
		b.AddError(arbor.NewMalformedQueryError("update of %s without attributes", q.Table))
		return
	}
	b.WriteString("UPDATE ").WriteString(q.Table)
	if q.Alias != "" {
		b.WriteString(" AS ").WriteString(q.Alias)
	}
	b.WriteString(" set ")
	for i, a := range q.UpdateAttributes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Column).WriteString(" = ").Arg(a.Value)
	}
	writeWhere(b, nil, q.Where)
	writeComment(b, q)
}

// writeLimitOffset writes LIMIT and OFFSET as bound arguments when set.
func writeLimitOffset(b *Builder, q *Query) {
	if q.Limit > 0 {
		b.WriteString(" LIMIT ").Arg(q.Limit)
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET ").Arg(q.Offset)
	}
}

func writeComment(b *Builder, q *Query) {
	if q.Comment != "" {
		b.WriteString(" /* ").WriteString(q.Comment).WriteString(" */")
	}
}

// quoteWith doubles any embedded quote character.
func quoteWith(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}
