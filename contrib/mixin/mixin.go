// Package mixin provides reusable field sets for model schemas.
//
// Usage:
//
//	reg.Register(model.Schema{
//	    Name:   "Product",
//	    Fields: []string{"name"},
//	    Mixins: []model.Mixin{mixin.Time{}, mixin.UUID{}},
//	})
package mixin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/arbor/model"
	"github.com/syssam/arbor/privacy"
)

// Schema is the default implementation of model.Mixin. Embed it and
// override the methods a mixin needs.
type Schema struct{}

func (Schema) Fields() []string             { return nil }
func (Schema) Defaults() map[string]any     { return nil }
func (Schema) BeforeSave() []model.Callback { return nil }
func (Schema) AfterSave() []model.Callback  { return nil }

// now is replaced in tests.
var now = time.Now

// CreateTime adds a created_at field set on insert.
type CreateTime struct{ Schema }

func (CreateTime) Fields() []string { return []string{"created_at"} }

func (CreateTime) Defaults() map[string]any {
	return map[string]any{"created_at": func() any { return now() }}
}

// UpdateTime adds an updated_at field refreshed on every save.
type UpdateTime struct{ Schema }

func (UpdateTime) Fields() []string { return []string{"updated_at"} }

func (UpdateTime) BeforeSave() []model.Callback {
	return []model.Callback{func(_ context.Context, m model.Model) error {
		m.Set("updated_at", now())
		return nil
	}}
}

// Time composes CreateTime and UpdateTime.
type Time struct{ Schema }

func (Time) Fields() []string {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

func (Time) Defaults() map[string]any { return CreateTime{}.Defaults() }

func (Time) BeforeSave() []model.Callback { return UpdateTime{}.BeforeSave() }

// UUID adds a field holding a random UUID generated on insert. Field
// defaults to "uuid".
type UUID struct {
	Schema
	Field string
}

func (m UUID) name() string {
	if m.Field == "" {
		return "uuid"
	}
	return m.Field
}

func (m UUID) Fields() []string { return []string{m.name()} }

func (m UUID) Defaults() map[string]any {
	return map[string]any{m.name(): func() any { return uuid.NewString() }}
}

// ErrTenantRequired is returned when a model is saved without a tenant.
var ErrTenantRequired = errors.New("mixin: tenant_id is required")

// TenantID adds a tenant_id field that must be set before saving.
type TenantID struct{ Schema }

func (TenantID) Fields() []string { return []string{"tenant_id"} }

func (TenantID) BeforeSave() []model.Callback {
	return []model.Callback{func(_ context.Context, m model.Model) error {
		if v := m.Get("tenant_id"); v == nil || v == "" {
			return ErrTenantRequired
		}
		return nil
	}}
}

// TenantPolicy is TenantID guarded by the viewer's tenant: fetches only
// see rows of the viewer's tenant and writes to other tenants are denied.
// Table qualifies the filtered column; set it when the model is joined
// with other tenant models.
type TenantPolicy struct {
	TenantID
	Table string
}

func (m TenantPolicy) Policy() privacy.QueryMutationRule {
	column := "tenant_id"
	if m.Table != "" {
		column = m.Table + "." + column
	}
	return privacy.Policy{
		Query:    privacy.QueryPolicy{privacy.TenantQueryRule(column)},
		Mutation: privacy.MutationPolicy{privacy.TenantRule("tenant_id")},
	}
}

var (
	_ model.Mixin = CreateTime{}
	_ model.Mixin = UpdateTime{}
	_ model.Mixin = Time{}
	_ model.Mixin = UUID{}
	_ model.Mixin = TenantID{}
	_ model.Mixin = TenantPolicy{}

	_ model.PolicyProvider = TenantPolicy{}
)
