package sql

import (
	"maps"
	"slices"
)

// Type is the statement type of a Query.
type Type int

// Statement types. Exactly one is active for a Query.
const (
	TypeSelect Type = iota
	TypeCount
	TypeUpdate
	TypeDelete
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeSelect:
		return "SELECT"
	case TypeCount:
		return "COUNT"
	case TypeUpdate:
		return "UPDATE"
	case TypeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FetchMode controls the shape of raw rows returned by the executor.
type FetchMode int

const (
	// FetchAssoc returns rows as map[string]any keyed by column name.
	FetchAssoc FetchMode = iota
	// FetchNum returns rows as []any in select-list order.
	FetchNum
	// FetchColumn returns the first column of every row.
	FetchColumn
)

// Column is one entry of the select list.
type Column struct {
	Expr  string
	Alias string
}

// As returns a Column selecting expr under alias.
func As(expr, alias string) Column {
	return Column{Expr: expr, Alias: alias}
}

// Assignment is one column = value pair of an UPDATE statement.
type Assignment struct {
	Column string
	Value  any
}

// Query is a mutable statement descriptor. It holds no connection state and
// is rendered into SQL by a Dialect.
type Query struct {
	Table            string
	Alias            string
	Type             Type
	Columns          []Column
	Where            []WhereClause
	Joins            []*JoinClause
	Using            []*JoinClause
	Order            []string
	GroupBy          []string
	Limit            int
	Offset           int
	UpdateAttributes []Assignment
	Distinct         bool
	LockForUpdate    bool
	Comment          string
	FetchMode        FetchMode
	Options          map[string]any
}

// NewQuery returns a SELECT query over the given table.
func NewQuery(table string) *Query {
	return &Query{Table: table, Type: TypeSelect}
}

// AddWhere appends a predicate. Empty predicates are dropped, and malformed
// ones (an empty IN list, for example) are rejected before they are stored.
func (q *Query) AddWhere(c WhereClause) error {
	if c == nil || c.IsEmpty() {
		return nil
	}
	if err := Check(c); err != nil {
		return err
	}
	q.Where = append(q.Where, c)
	return nil
}

// AddJoin appends a join. Joins render in the order they were added.
func (q *Query) AddJoin(j *JoinClause) {
	q.Joins = append(q.Joins, j)
}

// AddUsing appends a using clause for DELETE statements.
func (q *Query) AddUsing(j *JoinClause) {
	q.Using = append(q.Using, j)
}

// AddColumn appends expr to the select list.
func (q *Query) AddColumn(expr, alias string) {
	q.Columns = append(q.Columns, Column{Expr: expr, Alias: alias})
}

// HasColumnAlias reports whether alias is already used in the select list.
func (q *Query) HasColumnAlias(alias string) bool {
	return slices.ContainsFunc(q.Columns, func(c Column) bool {
		return c.Alias == alias
	})
}

// FromAlias returns the alias of the root table, or the table name.
func (q *Query) FromAlias() string {
	if q.Alias != "" {
		return q.Alias
	}
	return q.Table
}

// Clone returns a deep copy of q. Where clauses are immutable values and
// are shared; every slice and map is copied.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	c.Columns = slices.Clone(q.Columns)
	c.Where = slices.Clone(q.Where)
	c.Order = slices.Clone(q.Order)
	c.GroupBy = slices.Clone(q.GroupBy)
	c.UpdateAttributes = slices.Clone(q.UpdateAttributes)
	c.Options = maps.Clone(q.Options)
	c.Joins = cloneJoins(q.Joins)
	c.Using = cloneJoins(q.Using)
	return &c
}

func cloneJoins(joins []*JoinClause) []*JoinClause {
	if joins == nil {
		return nil
	}
	out := make([]*JoinClause, len(joins))
	for i, j := range joins {
		out[i] = j.Clone()
	}
	return out
}
