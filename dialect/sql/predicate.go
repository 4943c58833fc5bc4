package sql

// Field is a typed column name producing where clauses. Declaring fields
// once per model keeps column names and value types in one place:
//
//	var Price = sql.Field[int]("products.price")
//	builder.Where(Price.GT(5))
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the column equals v.
func (f Field[T]) EQ(v T) WhereClause { return f.is(EqualTo(v)) }

// NEQ returns a predicate that checks if the column does not equal v.
func (f Field[T]) NEQ(v T) WhereClause { return f.is(NotEqualTo(v)) }

// GT returns a predicate that checks if the column is greater than v.
func (f Field[T]) GT(v T) WhereClause { return f.is(GreaterThan(v)) }

// GTE returns a predicate that checks if the column is greater than or equal to v.
func (f Field[T]) GTE(v T) WhereClause { return f.is(GreaterOrEqual(v)) }

// LT returns a predicate that checks if the column is less than v.
func (f Field[T]) LT(v T) WhereClause { return f.is(LessThan(v)) }

// LTE returns a predicate that checks if the column is less than or equal to v.
func (f Field[T]) LTE(v T) WhereClause { return f.is(LessOrEqual(v)) }

// In returns a predicate that checks if the column value is in vs.
func (f Field[T]) In(vs ...T) WhereClause { return f.is(IsIn(anys(vs)...)) }

// NotIn returns a predicate that checks if the column value is not in vs.
func (f Field[T]) NotIn(vs ...T) WhereClause { return f.is(IsNotIn(anys(vs)...)) }

// IsNull returns a predicate that checks if the column is NULL.
func (f Field[T]) IsNull() WhereClause { return f.is(IsNull()) }

// NotNull returns a predicate that checks if the column is not NULL.
func (f Field[T]) NotNull() WhereClause { return f.is(IsNotNull()) }

func (f Field[T]) is(r Restriction) WhereClause { return Eq{string(f): r} }

// StringField is a string column with pattern predicates.
type StringField string

// Field returns the untyped comparisons of the column.
func (f StringField) Field() Field[string] { return Field[string](f) }

// HasPrefix returns a predicate that checks if the column starts with v.
func (f StringField) HasPrefix(v string) WhereClause { return Eq{string(f): StartsWith(v)} }

// HasSuffix returns a predicate that checks if the column ends with v.
func (f StringField) HasSuffix(v string) WhereClause { return Eq{string(f): EndsWith(v)} }

// Contains returns a predicate that checks if the column contains v.
func (f StringField) Contains(v string) WhereClause { return Eq{string(f): Contains(v)} }

// Matches returns a predicate using the dialect's regular expression operator.
func (f StringField) Matches(pattern string) WhereClause { return Eq{string(f): Regexp(pattern)} }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
