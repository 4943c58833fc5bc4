package model

import (
	"context"
	"maps"
	"slices"

	"github.com/syssam/arbor/privacy"
)

// Callback runs before or after a model is saved.
type Callback func(ctx context.Context, m Model) error

// Mixin contributes fields, defaults and callbacks to a Schema.
type Mixin interface {
	Fields() []string
	Defaults() map[string]any
	BeforeSave() []Callback
	AfterSave() []Callback
}

// PolicyProvider is implemented by mixins contributing a privacy policy.
type PolicyProvider interface {
	Policy() privacy.QueryMutationRule
}

// Schema declares a model. Only Name and Fields are required.
type Schema struct {
	// Name identifies the model in the registry and in relations.
	Name string
	// Table defaults to the pluralized, underscored name.
	Table string
	// PrimaryKey defaults to "id" unless NoPrimaryKey is set.
	PrimaryKey   string
	NoPrimaryKey bool
	// Sequence defaults to <table>_<primary key>_seq.
	Sequence string
	Fields   []string
	// Defaults maps fields to a value or a func() any evaluated per insert.
	Defaults   map[string]any
	Relations  []Relation
	BeforeSave []Callback
	AfterSave  []Callback
	Mixins     []Mixin
	// Policy guards fetches and writes of the model. Mixin policies run
	// first.
	Policy privacy.QueryMutationRule
	// New wraps the entity built for a row. Defaults to returning the
	// entity itself.
	New func(*Entity) Model
}

// Definition is the resolved, immutable metadata of a model.
type Definition struct {
	Name       string
	Table      string
	PrimaryKey string
	Sequence   string
	Fields     []string
	Defaults   map[string]any
	Relations  *Relations
	BeforeSave []Callback
	AfterSave  []Callback
	Policy     privacy.Policies

	wrap func(*Entity) Model
}

// New returns a model of the definition holding attrs.
func (d *Definition) New(attrs map[string]any) Model {
	e := NewEntity(d, attrs)
	if d.wrap != nil {
		return d.wrap(e)
	}
	return e
}

// HasField reports whether field is declared.
func (d *Definition) HasField(field string) bool {
	return slices.Contains(d.Fields, field)
}

// MergeDefaults returns attrs completed with the defaults of the declared
// fields attrs does not set. Function defaults are evaluated.
func (d *Definition) MergeDefaults(attrs map[string]any) map[string]any {
	if len(d.Defaults) == 0 {
		return attrs
	}
	out := maps.Clone(attrs)
	if out == nil {
		out = make(map[string]any)
	}
	for field, v := range d.Defaults {
		if _, ok := out[field]; ok || !d.HasField(field) {
			continue
		}
		if fn, ok := v.(func() any); ok {
			v = fn()
		}
		out[field] = v
	}
	return out
}

// Relation returns the relation called name.
func (d *Definition) Relation(name string) (*Relation, error) {
	return d.Relations.Get(name)
}
