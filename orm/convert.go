package orm

import (
	"context"

	"github.com/google/uuid"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/contrib/dataloader"
	"github.com/syssam/arbor/model"
)

// aliasGroup is the set of columns selected for one table alias. Column
// aliases are <alias>_<field>.
type aliasGroup struct {
	alias string
	def   *model.Definition
}

func columnAlias(alias, field string) string {
	return alias + "_" + field
}

// selectColumns adds every field of def under alias to the select list.
func (b *Builder) selectColumns(alias string, def *model.Definition) {
	for _, f := range def.Fields {
		as := columnAlias(alias, f)
		if b.query.HasColumnAlias(as) {
			b.record(arbor.NewConversionError(as, "selected twice; join with a distinct alias"))
			return
		}
		b.query.AddColumn(alias+"."+f, as)
	}
	b.groups = append(b.groups, aliasGroup{alias: alias, def: def})
}

// extract returns the attributes of g found in row.
func (g aliasGroup) extract(row map[string]any) map[string]any {
	attrs := make(map[string]any, len(g.def.Fields))
	for _, f := range g.def.Fields {
		if v, ok := row[columnAlias(g.alias, f)]; ok {
			attrs[f] = v
		}
	}
	return attrs
}

// convert builds the root model of a row and attaches its joined to-one
// models. A joined model whose key column is null is an outer join miss
// and stays unset.
func (b *Builder) convert(row map[string]any) model.Model {
	root := b.def.New(b.groups[0].extract(row))
	for _, j := range b.joins {
		if !j.storeField() {
			continue
		}
		if row[columnAlias(j.alias, j.keyColumn())] == nil {
			continue
		}
		g := aliasGroup{alias: j.alias, def: j.target}
		model.SetPath(root, j.destination, j.target.New(g.extract(row)))
	}
	return root
}

// session is the batch loading state of one top level fetch. It travels
// in the context; fetches started while one is active skip their With
// relations.
type session struct {
	id string
}

func sessionFrom(ctx context.Context) (*session, bool) {
	return dataloader.For[*session](ctx)
}

// process converts a result set, loads its With relations and attaches
// the models to a batch for lazy relation loading.
func (b *Builder) process(ctx context.Context, rows []map[string]any) ([]model.Model, error) {
	ms := make([]model.Model, 0, len(rows))
	for _, row := range rows {
		ms = append(ms, b.convert(row))
	}
	if len(ms) == 0 {
		return ms, nil
	}
	s, active := sessionFrom(ctx)
	if !active {
		s = &session{id: uuid.NewString()}
		if len(b.fetches) > 0 {
			ctx = dataloader.With(ctx, s)
			for _, f := range b.fetches {
				if err := b.client.loadRelation(ctx, model.Navigate(ms, f.field), f.relation); err != nil {
					return nil, err
				}
			}
		}
	}
	batch := &model.Batch{ID: s.id, Models: ms}
	for _, m := range ms {
		m.SetBatch(batch)
	}
	return ms, nil
}
