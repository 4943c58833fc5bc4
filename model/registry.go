package model

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-openapi/inflect"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/privacy"
)

var rules = inflect.NewDefaultRuleset()

// TableName returns the default table of a model: "OrderItem" is stored in
// "order_items".
func TableName(name string) string {
	return rules.Pluralize(rules.Underscore(name))
}

// Registry holds model schemas and memoizes their definitions. A definition
// is built on first access and shared afterwards; concurrent first accesses
// build it once.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	defs    map[string]*Definition
	group   singleflight.Group
}

// NewRegistry returns a registry holding schemas.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{
		schemas: make(map[string]Schema),
		defs:    make(map[string]*Definition),
	}
	if err := r.Register(schemas...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds schemas. A name can be registered once.
func (r *Registry) Register(schemas ...Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemas {
		if s.Name == "" {
			return arbor.NewConfigError("", "schema without a name")
		}
		if _, ok := r.schemas[s.Name]; ok {
			return arbor.NewConfigError(s.Name, "already registered")
		}
		r.schemas[s.Name] = s
	}
	return nil
}

// Definition returns the definition of the model called name.
func (r *Registry) Definition(name string) (*Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if ok {
		return def, nil
	}
	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if def, ok := r.defs[name]; ok {
			return def, nil
		}
		def, err := r.build(name)
		if err != nil {
			return nil, err
		}
		r.defs[name] = def
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Definition), nil
}

// MustDefinition is like Definition but panics on error.
func (r *Registry) MustDefinition(name string) *Definition {
	def, err := r.Definition(name)
	if err != nil {
		panic(err)
	}
	return def
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemas))
}

// Reset drops every memoized definition. Schemas stay registered.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.defs)
}

// build resolves a schema. Callers hold r.mu.
func (r *Registry) build(name string) (*Definition, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, arbor.NewConfigError(name, "unknown model")
	}
	def := &Definition{
		Name:       s.Name,
		Table:      s.Table,
		PrimaryKey: primaryKey(s),
		Sequence:   s.Sequence,
		Defaults:   make(map[string]any),
		wrap:       s.New,
	}
	if def.Table == "" {
		def.Table = TableName(s.Name)
	}
	if def.Sequence == "" && def.PrimaryKey != "" {
		def.Sequence = fmt.Sprintf("%s_%s_seq", def.Table, def.PrimaryKey)
	}
	addFields := func(fields []string) {
		for _, f := range fields {
			if !slices.Contains(def.Fields, f) {
				def.Fields = append(def.Fields, f)
			}
		}
	}
	for _, m := range s.Mixins {
		addFields(m.Fields())
		maps.Copy(def.Defaults, m.Defaults())
		def.BeforeSave = append(def.BeforeSave, m.BeforeSave()...)
		def.AfterSave = append(def.AfterSave, m.AfterSave()...)
		if p, ok := m.(PolicyProvider); ok {
			def.Policy = append(def.Policy, privacy.NewPolicies(p.Policy())...)
		}
	}
	addFields(s.Fields)
	if def.PrimaryKey != "" {
		addFields([]string{def.PrimaryKey})
	}
	maps.Copy(def.Defaults, s.Defaults)
	def.BeforeSave = append(def.BeforeSave, s.BeforeSave...)
	def.AfterSave = append(def.AfterSave, s.AfterSave...)
	def.Policy = append(def.Policy, privacy.NewPolicies(s.Policy)...)

	rels := make([]*Relation, 0, len(s.Relations))
	for _, rel := range s.Relations {
		rel.Owner = s.Name
		target, ok := r.schemas[rel.Target]
		if !ok {
			return nil, &arbor.ConfigError{Model: s.Name, Relation: rel.Name, Msg: fmt.Sprintf("targets unknown model %q", rel.Target)}
		}
		if err := rel.resolve(def.PrimaryKey, primaryKey(target)); err != nil {
			return nil, err
		}
		rels = append(rels, &rel)
	}
	relations, err := NewRelations(s.Name, rels...)
	if err != nil {
		return nil, err
	}
	def.Relations = relations
	return def, nil
}

func primaryKey(s Schema) string {
	switch {
	case s.NoPrimaryKey:
		return ""
	case s.PrimaryKey != "":
		return s.PrimaryKey
	default:
		return "id"
	}
}
