package orm

import (
	"context"
	"fmt"

	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
	"github.com/syssam/arbor/privacy"
)

// policyQuery exposes a builder to query rules.
type policyQuery struct{ b *Builder }

func (q policyQuery) Model() string          { return q.b.def.Name }
func (q policyQuery) Filter() privacy.Filter { return builderFilter{q.b} }

type builderFilter struct{ b *Builder }

func (f builderFilter) Where(c sql.WhereClause) { f.b.Where(c) }

// modelMutation exposes the write of one model to mutation rules.
type modelMutation struct {
	op privacy.Op
	m  model.Model
}

func (m modelMutation) Op() privacy.Op { return m.op }
func (m modelMutation) Model() string  { return m.m.Definition().Name }

func (m modelMutation) Field(name string) (any, bool) {
	v, ok := m.m.Attributes()[name]
	return v, ok
}

// bulkMutation exposes Builder.Update and Builder.DeleteAll. Filters
// restrict the affected rows.
type bulkMutation struct {
	op    privacy.Op
	b     *Builder
	attrs map[string]any
}

func (m bulkMutation) Op() privacy.Op         { return m.op }
func (m bulkMutation) Model() string          { return m.b.def.Name }
func (m bulkMutation) Filter() privacy.Filter { return builderFilter{m.b} }

func (m bulkMutation) Field(name string) (any, bool) {
	v, ok := m.attrs[name]
	return v, ok
}

func evalMutation(ctx context.Context, def *model.Definition, m privacy.Mutation) error {
	if len(def.Policy) == 0 {
		return nil
	}
	return def.Policy.EvalMutation(ctx, m)
}

// authorized evaluates the query policy of the model and returns the
// builder to run: b itself, or a copy restricted by the policy filters.
func (b *Builder) authorized(ctx context.Context) (*Builder, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.def.Policy) == 0 {
		return b, nil
	}
	scoped := b.Copy()
	if err := b.def.Policy.EvalQuery(ctx, policyQuery{scoped}); err != nil {
		return nil, fmt.Errorf("arbor: query %s: %w", b.def.Name, err)
	}
	if scoped.err != nil {
		return nil, scoped.err
	}
	return scoped, nil
}

// authorizeBulk evaluates the query and mutation policies of a bulk
// write.
func (b *Builder) authorizeBulk(ctx context.Context, op privacy.Op, attrs map[string]any) (*Builder, error) {
	scoped, err := b.authorized(ctx)
	if err != nil {
		return nil, err
	}
	if len(b.def.Policy) == 0 {
		return scoped, nil
	}
	if scoped == b {
		scoped = b.Copy()
	}
	if err := evalMutation(ctx, b.def, bulkMutation{op: op, b: scoped, attrs: attrs}); err != nil {
		return nil, err
	}
	if scoped.err != nil {
		return nil, scoped.err
	}
	return scoped, nil
}
