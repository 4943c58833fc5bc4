package sql

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/arbor"
)

// ConflictAction is the resolution applied when an INSERT hits a unique key.
type ConflictAction int

const (
	// ConflictNone leaves the conflict to the database (an error).
	ConflictNone ConflictAction = iota
	// ConflictIgnore skips the conflicting row.
	ConflictIgnore
	// ConflictUpdate overwrites the listed columns with the new values.
	ConflictUpdate
)

// OnConflict describes an upsert. Columns is the conflict target; it is
// ignored by MySQL, which resolves on any unique key.
type OnConflict struct {
	Action  ConflictAction
	Columns []string
	Update  []string
}

// InsertStatement is a single row INSERT.
type InsertStatement struct {
	Table     string
	Columns   []string
	Values    []any
	Returning string
	Conflict  *OnConflict
}

// BatchInsertStatement is a multi-row INSERT.
type BatchInsertStatement struct {
	Table     string
	Columns   []string
	Rows      [][]any
	Returning string
}

// insertOptions carries the dialect differences of INSERT rendering.
type insertOptions struct {
	quote     func(string) string
	returning bool
	// conflict returns the suffix for an upsert, or an INSERT option
	// keyword such as IGNORE.
	conflict func(c *OnConflict, quote func(string) string) (option, suffix string)
}

func buildInsert(o insertOptions, s *InsertStatement) (string, []any, error) {
	if len(s.Columns) != len(s.Values) {
		return "", nil, arbor.NewMalformedQueryError("insert into %s: %d columns, %d values", s.Table, len(s.Columns), len(s.Values))
	}
	if len(s.Columns) == 0 {
		return "", nil, arbor.NewMalformedQueryError("insert into %s without values", s.Table)
	}
	ib := sq.Insert(o.quote(s.Table)).Columns(quoteAll(s.Columns, o.quote)...).Values(s.Values...)
	if s.Conflict != nil && s.Conflict.Action != ConflictNone {
		option, suffix := o.conflict(s.Conflict, o.quote)
		if option != "" {
			ib = ib.Options(option)
		}
		if suffix != "" {
			ib = ib.Suffix(suffix)
		}
	}
	if s.Returning != "" && o.returning {
		ib = ib.Suffix("RETURNING " + o.quote(s.Returning))
	}
	return ib.ToSql()
}

func buildBatchInsert(o insertOptions, s *BatchInsertStatement) (string, []any, error) {
	if len(s.Rows) == 0 {
		return "", nil, arbor.NewMalformedQueryError("batch insert into %s without rows", s.Table)
	}
	ib := sq.Insert(o.quote(s.Table)).Columns(quoteAll(s.Columns, o.quote)...)
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return "", nil, arbor.NewMalformedQueryError("batch insert into %s: row %d has %d values, want %d", s.Table, i, len(row), len(s.Columns))
		}
		ib = ib.Values(row...)
	}
	if s.Returning != "" && o.returning {
		ib = ib.Suffix("RETURNING " + o.quote(s.Returning))
	}
	return ib.ToSql()
}

// standardConflict renders ON CONFLICT as understood by Postgres and SQLite.
func standardConflict(c *OnConflict, quote func(string) string) (string, string) {
	var sb strings.Builder
	sb.WriteString("ON CONFLICT")
	if len(c.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(quoteAll(c.Columns, quote), ", "))
		sb.WriteString(")")
	}
	if c.Action == ConflictIgnore || len(c.Update) == 0 {
		sb.WriteString(" DO NOTHING")
		return "", sb.String()
	}
	sb.WriteString(" DO UPDATE SET ")
	for i, col := range c.Update {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quote(col))
		sb.WriteString(" = excluded.")
		sb.WriteString(quote(col))
	}
	return "", sb.String()
}

func quoteAll(idents []string, quote func(string) string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quote(id)
	}
	return out
}
