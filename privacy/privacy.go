package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/arbor/dialect/sql"
)

// Policy decision sentinel errors.
//
// Rules return them, possibly wrapped, to steer the evaluation:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow ends the evaluation and permits the operation.
	Allow = errors.New("arbor/privacy: allow rule")

	// Deny ends the evaluation and rejects the operation.
	Deny = errors.New("arbor/privacy: deny rule")

	// Skip abstains. The next rule is evaluated.
	Skip = errors.New("arbor/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the operation of a mutation. Operations are bit flags so a rule
// can match several of them.
type Op uint

// Mutation operations.
const (
	OpInsert     Op = 1 << iota // Client.Insert
	OpUpdate                    // Client.Update
	OpUpdateMany                // Builder.Update
	OpDelete                    // Client.Delete
	OpDeleteMany                // Builder.DeleteAll
)

// Is reports whether op matches any of the operations in o.
func (op Op) Is(o Op) bool { return op&o != 0 }

var opNames = []string{"insert", "update", "update_many", "delete", "delete_many"}

// String implements fmt.Stringer.
func (op Op) String() string {
	var names []string
	for i, name := range opNames {
		if op&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Op(%d)", uint(op))
	}
	return strings.Join(names, "|")
}

type (
	// Query is a fetch under evaluation.
	Query interface {
		// Model returns the name of the queried model.
		Model() string
	}

	// Mutation is a write under evaluation.
	Mutation interface {
		Op() Op
		// Model returns the name of the written model.
		Model() string
		// Field returns a value the mutation writes.
		Field(name string) (any, bool)
	}

	// QueryRule decides whether a query is allowed and optionally
	// restricts it.
	QueryRule interface {
		EvalQuery(context.Context, Query) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule decides whether a mutation is allowed.
	MutationRule interface {
		EvalMutation(context.Context, Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule groups query and mutation rules. Model schemas
	// carry one as their policy.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a rule from a context evaluation
// function. Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

// QueryRuleFunc is an adapter to use ordinary functions as query rules.
type QueryRuleFunc func(context.Context, Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q Query) error {
	return f(ctx, q)
}

// MutationRuleFunc is an adapter to use ordinary functions as mutation
// rules.
type MutationRuleFunc func(context.Context, Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m Mutation) error {
	return f(ctx, m)
}

// OnMutationOperation evaluates rule only on the given operations.
func OnMutationOperation(rule MutationRule, op Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		if m.Op().Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying the given operations.
func DenyMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m Mutation) error {
		return Denyf("arbor/privacy: operation %s is not allowed on %s", m.Op(), m.Model())
	})
	return OnMutationOperation(rule, op)
}

// AllowMutationOperationRule returns a rule allowing the given operations.
func AllowMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q Query) error {
	return p.Query.EvalQuery(ctx, q)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, m Mutation) error {
	return p.Mutation.EvalMutation(ctx, m)
}

// Policies combines the policies of a model and its mixins. Evaluation
// stops at the first decision; Allow becomes a nil error.
type Policies []QueryMutationRule

// NewPolicies returns the non-nil policies.
func NewPolicies(policies ...QueryMutationRule) Policies {
	out := make(Policies, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// EvalQuery evaluates the query policies.
func (policies Policies) EvalQuery(ctx context.Context, q Query) error {
	return policies.eval(ctx, func(policy QueryMutationRule) error {
		return policy.EvalQuery(ctx, q)
	})
}

// EvalMutation evaluates the mutation policies.
func (policies Policies) EvalMutation(ctx context.Context, m Mutation) error {
	return policies.eval(ctx, func(policy QueryMutationRule) error {
		return policy.EvalMutation(ctx, m)
	})
}

func (policies Policies) eval(ctx context.Context, eval func(QueryMutationRule) error) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, policy := range policies {
		switch decision := eval(policy); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalQuery evaluates q against the rules in order.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q Query) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates m against the rules in order.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m Mutation) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext returns a context carrying a decision that overrides
// every policy evaluated under it. Skip and nil leave parent unchanged.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, Query) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ Mutation) error {
	return c.eval(ctx)
}

// Filter restricts the rows a query reads or a bulk mutation writes.
type Filter interface {
	Where(sql.WhereClause)
}

// Filterable is implemented by queries and bulk mutations. Mutations of
// a single model are not filterable.
type Filterable interface {
	Filter() Filter
}

// FilterFunc is an adapter that allows using ordinary functions as
// rules restricting the affected rows:
//
//	privacy.FilterFunc(func(ctx context.Context, f privacy.Filter) error {
//	    f.Where(sql.Eq{"products.id_shop": shopID(ctx)})
//	    return privacy.Skip
//	})
type FilterFunc func(context.Context, Filter) error

// EvalQuery calls f(ctx, q.Filter()) if the query implements Filterable.
func (f FilterFunc) EvalQuery(ctx context.Context, q Query) error {
	fr, ok := q.(Filterable)
	if !ok {
		return Denyf("arbor/privacy: query of %s does not support filtering", q.Model())
	}
	return f(ctx, fr.Filter())
}

// EvalMutation calls f(ctx, m.Filter()) if the mutation implements
// Filterable.
func (f FilterFunc) EvalMutation(ctx context.Context, m Mutation) error {
	fr, ok := m.(Filterable)
	if !ok {
		return Denyf("arbor/privacy: %s of %s does not support filtering", m.Op(), m.Model())
	}
	return f(ctx, fr.Filter())
}

var _ QueryMutationRule = FilterFunc(nil)
