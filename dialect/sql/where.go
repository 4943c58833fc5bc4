package sql

import (
	"database/sql/driver"
	"reflect"
	"slices"
	"strings"

	"github.com/syssam/arbor"
)

// WhereClause is a predicate contributing to a WHERE condition together
// with its bound values. Clauses added to a Query are ANDed.
type WhereClause interface {
	// IsEmpty reports whether the clause contributes nothing.
	IsEmpty() bool
	// Build writes the predicate and its arguments into b.
	Build(b *Builder)
}

// Check renders c without a connection and reports malformed input.
func Check(c WhereClause) error {
	b := NewBuilder(Postgres())
	c.Build(b)
	return b.Err()
}

// rawClause is a SQL fragment with positional values.
type rawClause struct {
	sql  string
	args []any
}

// Raw returns a clause made of a SQL fragment with ? placeholders.
//
// A fragment containing "OR" anywhere, in any case, is parenthesized when
// rendered. The check is a substring match: a literal such as 'color' also
// triggers it, which is harmless. Use Or for structural grouping.
func Raw(sql string, args ...any) WhereClause {
	return rawClause{sql: sql, args: args}
}

func (r rawClause) IsEmpty() bool {
	return strings.TrimSpace(r.sql) == ""
}

func (r rawClause) Build(b *Builder) {
	if strings.Contains(strings.ToUpper(r.sql), "OR") {
		b.WriteByte('(').Splice(r.sql, r.args).WriteByte(')')
		return
	}
	b.Splice(r.sql, r.args)
}

// Eq is a column to value mapping. Scalars render `col = ?`, slices render
// `col IN (?, ...)`, nil renders `col IS NULL` and Restriction values
// render themselves. Keys render sorted.
type Eq map[string]any

func (eq Eq) IsEmpty() bool {
	return len(eq) == 0
}

func (eq Eq) Build(b *Builder) {
	keys := make([]string, 0, len(eq))
	for k := range eq {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" AND ")
		}
		writeComparison(b, k, eq[k])
	}
}

func writeComparison(b *Builder, key string, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString(key).WriteString(" IS NULL")
	case Restriction:
		v.Render(b, key)
	case []byte, driver.Valuer:
		b.WriteString(key).WriteString(" = ").Arg(v)
	default:
		if vs, ok := flatten(v); ok {
			IsIn(vs...).Render(b, key)
			return
		}
		b.WriteString(key).WriteString(" = ").Arg(v)
	}
}

// flatten expands slice values into []any. Arrays, such as a UUID, are
// scalars.
func flatten(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// junction joins non-empty clauses with an operator.
type junction struct {
	op      string
	clauses []WhereClause
}

// Or returns a disjunction of clauses. It is always parenthesized.
func Or(clauses ...WhereClause) WhereClause {
	return junction{op: " OR ", clauses: clauses}
}

// And returns a conjunction of clauses.
func And(clauses ...WhereClause) WhereClause {
	return junction{op: " AND ", clauses: clauses}
}

func (j junction) IsEmpty() bool {
	for _, c := range j.clauses {
		if c != nil && !c.IsEmpty() {
			return false
		}
	}
	return true
}

func (j junction) Build(b *Builder) {
	or := j.op == " OR "
	if or {
		b.WriteByte('(')
	}
	first := true
	for _, c := range j.clauses {
		if c == nil || c.IsEmpty() {
			continue
		}
		if !first {
			b.WriteString(j.op)
		}
		first = false
		c.Build(b)
	}
	if or {
		b.WriteByte(')')
	}
}

// existsClause renders a correlated sub-query.
type existsClause struct {
	query *Query
	not   bool
}

// Exists returns a clause rendering `EXISTS (<sub-query>)`.
func Exists(q *Query) WhereClause {
	return existsClause{query: q}
}

// NotExists returns a clause rendering `NOT EXISTS (<sub-query>)`.
func NotExists(q *Query) WhereClause {
	return existsClause{query: q, not: true}
}

func (e existsClause) IsEmpty() bool {
	return e.query == nil
}

func (e existsClause) Build(b *Builder) {
	query, args, err := b.Dialect().BuildQuery(e.query)
	if err != nil {
		b.AddError(err)
		return
	}
	if e.not {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS (").Splice(query, args).WriteByte(')')
}

// errEmptyIn is recorded when an IN list has no values.
func errEmptyIn(key string) error {
	return arbor.NewMalformedQueryError("empty IN list for %q", key)
}
