package orm

import (
	"fmt"
	"slices"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
)

// JoinOption configures a join.
type JoinOption func(*joinOptions)

type joinOptions struct {
	aliases []string
	on      []sql.WhereClause
}

// Alias names the joined tables, one alias per hop of a nested selector.
// Hops without an alias get a generated one.
func Alias(aliases ...string) JoinOption {
	return func(o *joinOptions) {
		o.aliases = append(o.aliases, aliases...)
	}
}

// On adds conditions to the ON clause of the last hop.
func On(clauses ...sql.WhereClause) JoinOption {
	return func(o *joinOptions) {
		o.on = append(o.on, clauses...)
	}
}

// hop is one resolved step of a relation selector.
type hop struct {
	relation *model.Relation
	target   *model.Definition
}

// modelJoin is a relation joined into a builder's query.
type modelJoin struct {
	from        string
	relation    *model.Relation
	target      *model.Definition
	requested   string
	alias       string
	destination string
	typ         sql.JoinType
	on          []sql.WhereClause
}

// storeField reports whether the joined model is materialized. To-many
// joins only filter.
func (j *modelJoin) storeField() bool {
	return !j.relation.IsCollection()
}

// same reports whether o joins the same relation from the same alias into
// the same destination.
func (j *modelJoin) same(o *modelJoin) bool {
	return j.from == o.from &&
		j.relation.Owner == o.relation.Owner &&
		j.relation.Name == o.relation.Name &&
		j.requested == o.requested &&
		j.destination == o.destination
}

// keyColumn is the column of the joined side that is null on an outer
// join miss.
func (j *modelJoin) keyColumn() string {
	if j.target.HasField(j.relation.ForeignKey) {
		return j.relation.ForeignKey
	}
	return j.target.PrimaryKey
}

func (j *modelJoin) clause() *sql.JoinClause {
	c := &sql.JoinClause{
		Table:        j.target.Table,
		Type:         j.typ,
		JoinColumn:   j.relation.ForeignKey,
		JoinedColumn: j.relation.LocalKey,
		JoinedTable:  j.from,
	}
	if j.alias != j.target.Table {
		c.Alias = j.alias
	}
	if j.relation.Condition != nil {
		c.On = append(c.On, j.relation.Condition)
	}
	c.On = append(c.On, j.on...)
	return c
}

// relationToFetch is a relation loaded by a separate query after the
// root models are converted. field is the path of the parents, destination
// the path the loaded models are stored at.
type relationToFetch struct {
	field       string
	relation    *model.Relation
	destination string
}

func (r *relationToFetch) same(o *relationToFetch) bool {
	return r.field == o.field &&
		r.relation.Owner == o.relation.Owner &&
		r.relation.Name == o.relation.Name &&
		r.destination == o.destination
}

// resolve walks a selector such as "category->parent" from the root model.
func (b *Builder) resolve(selector string) ([]hop, error) {
	names := model.SplitPath(selector)
	if len(names) == 0 {
		return nil, arbor.NewConfigError(b.def.Name, "empty relation selector")
	}
	hops := make([]hop, 0, len(names))
	def := b.def
	for _, name := range names {
		rel, err := def.Relation(name)
		if err != nil {
			return nil, err
		}
		target, err := b.client.definition(rel.Target)
		if err != nil {
			return nil, err
		}
		hops = append(hops, hop{relation: rel, target: target})
		def = target
	}
	return hops, nil
}

func (b *Builder) join(selector string, typ sql.JoinType, opts []JoinOption) *Builder {
	if b.err != nil {
		return b
	}
	var o joinOptions
	for _, opt := range opts {
		opt(&o)
	}
	hops, err := b.resolve(selector)
	if err != nil {
		b.record(err)
		return b
	}
	from, dest := b.query.FromAlias(), ""
	for i, h := range hops {
		dest = model.JoinPath(dest, h.relation.Name)
		j := &modelJoin{
			from:        from,
			relation:    h.relation,
			target:      h.target,
			destination: dest,
			typ:         typ,
		}
		if i < len(o.aliases) {
			j.requested = o.aliases[i]
		}
		if i == len(hops)-1 {
			j.on = o.on
		}
		if typ != sql.UsingJoin {
			if k := slices.IndexFunc(b.joins, j.same); k >= 0 {
				from = b.joins[k].alias
				continue
			}
		}
		if j.alias, err = b.allocAlias(j); err != nil {
			b.record(err)
			return b
		}
		b.aliases = append(b.aliases, j.alias)
		from = j.alias
		if typ == sql.UsingJoin {
			b.query.AddUsing(j.clause())
			continue
		}
		b.query.AddJoin(j.clause())
		b.joins = append(b.joins, j)
		if j.storeField() && b.selectModel {
			b.selectColumns(j.alias, j.target)
		}
	}
	return b
}

// allocAlias returns the requested alias, else the target table, else
// <from>_<relation> with a numeric suffix while taken.
func (b *Builder) allocAlias(j *modelJoin) (string, error) {
	if j.requested != "" {
		if slices.Contains(b.aliases, j.requested) {
			return "", &arbor.ConfigError{
				Model:    j.relation.Owner,
				Relation: j.relation.Name,
				Msg:      fmt.Sprintf("alias %q is already used in this query", j.requested),
			}
		}
		return j.requested, nil
	}
	if !slices.Contains(b.aliases, j.target.Table) {
		return j.target.Table, nil
	}
	base := j.from + "_" + j.relation.Name
	alias := base
	for n := 2; slices.Contains(b.aliases, alias); n++ {
		alias = fmt.Sprintf("%s_%d", base, n)
	}
	return alias, nil
}

func (b *Builder) with(selector string) *Builder {
	if b.err != nil {
		return b
	}
	hops, err := b.resolve(selector)
	if err != nil {
		b.record(err)
		return b
	}
	field := ""
	for _, h := range hops {
		f := &relationToFetch{
			field:       field,
			relation:    h.relation,
			destination: model.JoinPath(field, h.relation.Name),
		}
		if !slices.ContainsFunc(b.fetches, f.same) {
			b.fetches = append(b.fetches, f)
		}
		field = f.destination
	}
	return b
}
