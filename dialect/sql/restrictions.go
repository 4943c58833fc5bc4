package sql

// Restriction is a comparison against a single column. Restrictions are
// used as values of Eq:
//
//	sql.Eq{"name": sql.StartsWith("b"), "price": sql.GreaterThan(5)}
type Restriction interface {
	Render(b *Builder, key string)
}

// compare renders `key <op> ?`.
type compare struct {
	op    string
	value any
}

func (c compare) Render(b *Builder, key string) {
	b.WriteString(key).WriteByte(' ').WriteString(c.op).WriteByte(' ').Arg(c.value)
}

// EqualTo renders `key = ?`.
func EqualTo(v any) Restriction { return compare{op: "=", value: v} }

// NotEqualTo renders `key <> ?`.
func NotEqualTo(v any) Restriction { return compare{op: "<>", value: v} }

// GreaterThan renders `key > ?`.
func GreaterThan(v any) Restriction { return compare{op: ">", value: v} }

// GreaterOrEqual renders `key >= ?`.
func GreaterOrEqual(v any) Restriction { return compare{op: ">=", value: v} }

// LessThan renders `key < ?`.
func LessThan(v any) Restriction { return compare{op: "<", value: v} }

// LessOrEqual renders `key <= ?`.
func LessOrEqual(v any) Restriction { return compare{op: "<=", value: v} }

// Like renders `key LIKE ?` with the pattern as given.
func Like(pattern string) Restriction { return compare{op: "LIKE", value: pattern} }

// StartsWith matches values beginning with prefix.
func StartsWith(prefix string) Restriction { return compare{op: "LIKE", value: prefix + "%"} }

// EndsWith matches values ending with suffix.
func EndsWith(suffix string) Restriction { return compare{op: "LIKE", value: "%" + suffix} }

// Contains matches values containing s.
func Contains(s string) Restriction { return compare{op: "LIKE", value: "%" + s + "%"} }

// between renders a closed or open range.
type between struct {
	min, max  any
	exclusive bool
}

// Between renders `(key >= ? AND key <= ?)`.
func Between(min, max any) Restriction { return between{min: min, max: max} }

// BetweenExclusive renders `(key > ? AND key < ?)`.
func BetweenExclusive(min, max any) Restriction {
	return between{min: min, max: max, exclusive: true}
}

func (r between) Render(b *Builder, key string) {
	lo, hi := " >= ", " <= "
	if r.exclusive {
		lo, hi = " > ", " < "
	}
	b.WriteByte('(').WriteString(key).WriteString(lo).Arg(r.min)
	b.WriteString(" AND ").WriteString(key).WriteString(hi).Arg(r.max).WriteByte(')')
}

// regexpMatch uses the dialect's matching operator.
type regexpMatch struct {
	pattern string
}

// Regexp renders `key <matcher> ?`, e.g. `key ~ ?` on Postgres and
// `key REGEXP ?` on MySQL and SQLite.
func Regexp(pattern string) Restriction { return regexpMatch{pattern: pattern} }

func (r regexpMatch) Render(b *Builder, key string) {
	b.WriteString(key).WriteByte(' ').WriteString(b.Dialect().RegexpMatcher()).WriteByte(' ').Arg(r.pattern)
}

type isNull struct {
	not bool
}

// IsNull renders `key IS NULL`.
func IsNull() Restriction { return isNull{} }

// IsNotNull renders `key IS NOT NULL`.
func IsNotNull() Restriction { return isNull{not: true} }

func (r isNull) Render(b *Builder, key string) {
	if r.not {
		b.WriteString(key).WriteString(" IS NOT NULL")
		return
	}
	b.WriteString(key).WriteString(" IS NULL")
}

// in renders an IN list with one placeholder per value.
type in struct {
	values []any
	not    bool
}

// IsIn renders `key IN (?, ...)`. An empty list is a malformed query.
func IsIn(values ...any) Restriction { return in{values: values} }

// IsNotIn renders `key NOT IN (?, ...)`. An empty list is a malformed query.
func IsNotIn(values ...any) Restriction { return in{values: values, not: true} }

func (r in) Render(b *Builder, key string) {
	if len(r.values) == 0 {
		b.AddError(errEmptyIn(key))
		return
	}
	b.WriteString(key)
	if r.not {
		b.WriteString(" NOT")
	}
	b.WriteString(" IN (").Args(r.values...).WriteByte(')')
}
