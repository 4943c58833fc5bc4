package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/arbor/dialect/sql"
)

// Viewer is the authenticated user a request runs for.
type Viewer interface {
	GetID() string
	GetRoles() []string
	// GetTenantID returns "" when tenancy does not apply.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext returns the viewer of ctx, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic Viewer.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

func (v *SimpleViewer) GetID() string       { return v.UserID }
func (v *SimpleViewer) GetRoles() []string  { return v.Roles }
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule that denies access if no viewer is present
// in the context. It usually comes first:
//
//	privacy.Policy{
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.IsOwner("id_user"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	}
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("arbor/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has role.
func HasRole(role string) QueryMutationRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of
// roles.
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a mutation rule that allows writes whose field holds
// the viewer's id.
func IsOwner(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok || value == nil {
			return Skip
		}
		if fmt.Sprint(value) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// OwnerQueryRule returns a query rule restricting queries to the rows
// whose column holds the viewer's id. Queries without a viewer are denied.
func OwnerQueryRule(column string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q Query) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("arbor/privacy: viewer required for owner-filtered query")
		}
		return FilterFunc(func(_ context.Context, f Filter) error {
			f.Where(sql.Eq{column: viewer.GetID()})
			return Skip
		}).EvalQuery(ctx, q)
	})
}

// TenantRule returns a mutation rule that allows writes whose field holds
// the viewer's tenant and denies the others.
func TenantRule(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok {
			return Skip
		}
		if fmt.Sprint(value) == viewer.GetTenantID() {
			return Allow
		}
		return Denyf("arbor/privacy: tenant mismatch")
	})
}

// TenantQueryRule returns a query rule restricting queries to the rows
// whose column holds the viewer's tenant. Queries without a tenant are
// denied.
func TenantQueryRule(column string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q Query) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("arbor/privacy: viewer required for tenant-filtered query")
		}
		if viewer.GetTenantID() == "" {
			return Denyf("arbor/privacy: tenant required")
		}
		return FilterFunc(func(_ context.Context, f Filter) error {
			f.Where(sql.Eq{column: viewer.GetTenantID()})
			return Skip
		}).EvalQuery(ctx, q)
	})
}
