package model

import (
	"fmt"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect/sql"
)

// Kind is the kind of a relation.
type Kind int

// Relation kinds.
const (
	HasOne Kind = iota + 1
	HasMany
	BelongsTo
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case HasOne:
		return "hasOne"
	case HasMany:
		return "hasMany"
	case BelongsTo:
		return "belongsTo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Relation is a foreign-key association from one model to another.
//
// LocalKey is a column of the owner and ForeignKey a column of the target,
// whatever the kind. For HasOne and HasMany the local key defaults to the
// owner's primary key; for BelongsTo the foreign key is the referenced
// column, which defaults to the target's primary key.
type Relation struct {
	Owner            string
	Name             string
	Target           string
	Kind             Kind
	LocalKey         string
	ForeignKey       string
	ReferencedColumn string
	Condition        sql.WhereClause
	Order            []string
}

// HasOneOf declares a to-one relation whose target holds foreignKey.
func HasOneOf(name, target, foreignKey string) Relation {
	return Relation{Name: name, Target: target, Kind: HasOne, ForeignKey: foreignKey}
}

// HasManyOf declares a to-many relation whose targets hold foreignKey.
func HasManyOf(name, target, foreignKey string) Relation {
	return Relation{Name: name, Target: target, Kind: HasMany, ForeignKey: foreignKey}
}

// BelongsToOf declares a to-one relation whose key, foreignKey, is a column
// of the owner.
func BelongsToOf(name, target, foreignKey string) Relation {
	return Relation{Name: name, Target: target, Kind: BelongsTo, LocalKey: foreignKey}
}

// Where returns a copy of r that only matches targets satisfying c.
func (r Relation) Where(c sql.WhereClause) Relation {
	r.Condition = c
	return r
}

// OrderBy returns a copy of r whose targets load in the given order.
func (r Relation) OrderBy(columns ...string) Relation {
	r.Order = columns
	return r
}

// References returns a copy of r pointing at column of the target.
func (r Relation) References(column string) Relation {
	r.ReferencedColumn = column
	return r
}

// Local returns a copy of r using column of the owner as its key.
func (r Relation) Local(column string) Relation {
	r.LocalKey = column
	return r
}

// IsCollection reports whether the relation loads a slice of models.
func (r *Relation) IsCollection() bool {
	return r.Kind == HasMany
}

// Extract returns the relation value for a set of loaded targets: the slice
// for to-many relations, otherwise the first target or nil.
func (r *Relation) Extract(targets []Model) any {
	if r.IsCollection() {
		if targets == nil {
			return []Model{}
		}
		return targets
	}
	if len(targets) == 0 {
		return nil
	}
	return targets[0]
}

// String implements fmt.Stringer.
func (r *Relation) String() string {
	return fmt.Sprintf("%s %s.%s -> %s", r.Kind, r.Owner, r.Name, r.Target)
}

// resolve fills the keys that default to primary keys.
func (r *Relation) resolve(ownerPK, targetPK string) error {
	switch r.Kind {
	case HasOne, HasMany:
		if r.LocalKey == "" {
			r.LocalKey = ownerPK
		}
		if r.ForeignKey == "" {
			return arbor.NewConfigError(r.Owner, fmt.Sprintf("relation %q has no foreign key", r.Name))
		}
	case BelongsTo:
		if r.LocalKey == "" {
			return arbor.NewConfigError(r.Owner, fmt.Sprintf("relation %q has no foreign key", r.Name))
		}
		if r.ReferencedColumn == "" {
			r.ReferencedColumn = targetPK
		}
		r.ForeignKey = r.ReferencedColumn
	default:
		return arbor.NewConfigError(r.Owner, fmt.Sprintf("relation %q has unknown kind %s", r.Name, r.Kind))
	}
	if r.LocalKey == "" || r.ForeignKey == "" {
		return arbor.NewConfigError(r.Owner, fmt.Sprintf("relation %q needs a primary key to join on", r.Name))
	}
	return nil
}

// Relations is the set of relations declared by one model.
type Relations struct {
	model  string
	byName map[string]*Relation
	order  []*Relation
}

// NewRelations returns the relations of model. Relation names must be
// unique.
func NewRelations(model string, rels ...*Relation) (*Relations, error) {
	r := &Relations{model: model, byName: make(map[string]*Relation, len(rels))}
	for _, rel := range rels {
		if _, ok := r.byName[rel.Name]; ok {
			return nil, arbor.NewDuplicateRelationError(model, rel.Name)
		}
		r.byName[rel.Name] = rel
		r.order = append(r.order, rel)
	}
	return r, nil
}

// Get returns the relation called name.
func (r *Relations) Get(name string) (*Relation, error) {
	if rel, ok := r.byName[name]; ok {
		return rel, nil
	}
	return nil, arbor.NewUnknownRelationError(r.model, name)
}

// Has reports whether a relation called name exists.
func (r *Relations) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// All returns the relations in declaration order.
func (r *Relations) All() []*Relation {
	return r.order
}
