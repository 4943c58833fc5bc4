// Package privacy evaluates access rules before arbor reads or writes
// models.
//
// A policy is attached to a model schema. Rules run in order and each
// returns Allow, Deny or Skip; the first Allow or Deny decides, and an
// operation every rule skipped is allowed:
//
//	model.Schema{
//	    Name:   "Order",
//	    Fields: []string{"id_user", "id_tenant", "total"},
//	    Policy: privacy.Policy{
//	        Query: privacy.QueryPolicy{
//	            privacy.TenantQueryRule("orders.id_tenant"),
//	        },
//	        Mutation: privacy.MutationPolicy{
//	            privacy.DenyIfNoViewer(),
//	            privacy.HasRole("admin"),
//	            privacy.IsOwner("id_user"),
//	            privacy.AlwaysDenyRule(),
//	        },
//	    },
//	}
//
// Query rules may also restrict a query through FilterFunc: the filter
// adds a WHERE restriction to the fetch or the bulk update or delete that
// is being evaluated. Relations loaded with With are queries of their
// target model and go through its policy.
//
// The viewer a request runs for travels in the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "7", Roles: []string{"admin"}})
//
// DecisionContext overrides every policy, typically to let internal jobs
// bypass them:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
