// Package model describes the metadata of persisted models: tables, fields,
// primary keys, defaults, save callbacks and the relations between models.
//
// Models are attribute bags. A Definition builds an *Entity from a row's
// attributes; applications that want named accessors embed *Entity in their
// own type and register a constructor on the Schema:
//
//	type Category struct{ *model.Entity }
//
//	func (c *Category) Name() string { s, _ := c.Get("name").(string); return s }
//
//	reg.Register(model.Schema{
//	    Name:   "Category",
//	    Fields: []string{"name", "id_parent"},
//	    New:    func(e *model.Entity) model.Model { return &Category{e} },
//	})
package model

import (
	"maps"
	"slices"
)

// Model is a persisted record backed by an attribute map.
type Model interface {
	// Definition returns the model's metadata.
	Definition() *Definition
	// Get returns the value of an attribute, or nil.
	Get(field string) any
	// Set assigns an attribute.
	Set(field string, value any)
	// Attributes returns the attribute map. Callers must not retain it
	// across Set calls.
	Attributes() map[string]any
	// Related returns the loaded value of a relation: a Model, a []Model,
	// or nil. The second result is false when the relation was never loaded.
	Related(name string) (any, bool)
	// SetRelated stores a loaded relation value.
	SetRelated(name string, value any)
	// Batch returns the result set the model was fetched with.
	Batch() *Batch
	// SetBatch records the result set the model was fetched with.
	SetBatch(b *Batch)
}

// Batch is a result set of models loaded by one top-level fetch. Relation
// loads triggered on any of its members are issued for all of them at once.
type Batch struct {
	ID     string
	Models []Model
}

// Entity is the default Model implementation.
type Entity struct {
	def     *Definition
	attrs   map[string]any
	related map[string]any
	batch   *Batch
}

// NewEntity returns an entity of def holding a copy of attrs.
func NewEntity(def *Definition, attrs map[string]any) *Entity {
	e := &Entity{def: def, attrs: make(map[string]any, len(attrs))}
	maps.Copy(e.attrs, attrs)
	return e
}

func (e *Entity) Definition() *Definition { return e.def }

func (e *Entity) Get(field string) any { return e.attrs[field] }

func (e *Entity) Set(field string, value any) {
	if e.attrs == nil {
		e.attrs = make(map[string]any)
	}
	e.attrs[field] = value
}

func (e *Entity) Attributes() map[string]any { return e.attrs }

func (e *Entity) Related(name string) (any, bool) {
	v, ok := e.related[name]
	return v, ok
}

func (e *Entity) SetRelated(name string, value any) {
	if e.related == nil {
		e.related = make(map[string]any)
	}
	e.related[name] = value
}

func (e *Entity) Batch() *Batch { return e.batch }

func (e *Entity) SetBatch(b *Batch) { e.batch = b }

// ID returns the primary key value, or nil for models without one.
func (e *Entity) ID() any {
	if e.def == nil || e.def.PrimaryKey == "" {
		return nil
	}
	return e.attrs[e.def.PrimaryKey]
}

// Fields returns the attribute names that are set, sorted.
func (e *Entity) Fields() []string {
	return slices.Sorted(maps.Keys(e.attrs))
}

var _ Model = (*Entity)(nil)
