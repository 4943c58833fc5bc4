package sql

import "slices"

// JoinType is the kind of SQL join.
type JoinType string

// Join types.
const (
	LeftJoin  JoinType = "LEFT"
	InnerJoin JoinType = "INNER"
	RightJoin JoinType = "RIGHT"
	UsingJoin JoinType = "USING"
)

// JoinClause describes one JOIN. The ON condition compares
// JoinedTable.JoinedColumn (the side already in the query) with
// <Alias or Table>.JoinColumn (the joined side).
type JoinClause struct {
	Table        string
	Alias        string
	Type         JoinType
	JoinColumn   string
	JoinedColumn string
	JoinedTable  string
	On           []WhereClause
}

// Clone returns a copy of j.
func (j *JoinClause) Clone() *JoinClause {
	if j == nil {
		return nil
	}
	c := *j
	c.On = slices.Clone(j.On)
	return &c
}

// TableAlias returns the alias of the joined table, or the table name.
func (j *JoinClause) TableAlias() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

// writeTable writes `table [AS alias]`.
func (j *JoinClause) writeTable(b *Builder) {
	b.WriteString(j.Table)
	if j.Alias != "" {
		b.WriteString(" AS ").WriteString(j.Alias)
	}
}

// writeCondition writes the key comparison followed by any extra ON clauses.
func (j *JoinClause) writeCondition(b *Builder) {
	b.WriteString(j.JoinedTable).WriteByte('.').WriteString(j.JoinedColumn)
	b.WriteString(" = ")
	b.WriteString(j.TableAlias()).WriteByte('.').WriteString(j.JoinColumn)
	for _, c := range j.On {
		if c == nil || c.IsEmpty() {
			continue
		}
		b.WriteString(" AND ")
		c.Build(b)
	}
}

// Build writes `<TYPE> JOIN table [AS alias] ON ...`.
func (j *JoinClause) Build(b *Builder) {
	typ := j.Type
	if typ == "" || typ == UsingJoin {
		typ = LeftJoin
	}
	b.WriteString(string(typ)).WriteString(" JOIN ")
	j.writeTable(b)
	b.WriteString(" ON ")
	j.writeCondition(b)
}
