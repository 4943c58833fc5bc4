package sql

import (
	"errors"
	"strings"
)

// Builder is the low-level SQL writer shared by every clause. It collects
// the statement text and its arguments in a single pass, so the position
// of each ? always matches the position of its argument.
type Builder struct {
	sb      strings.Builder
	args    []any
	errs    []error
	dialect Dialect
}

// NewBuilder returns a Builder rendering for the given dialect.
func NewBuilder(d Dialect) *Builder {
	return &Builder{dialect: d}
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// WriteString appends s to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c to the statement.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Arg writes a single placeholder and records its value.
func (b *Builder) Arg(a any) *Builder {
	b.sb.WriteByte('?')
	b.args = append(b.args, a)
	return b
}

// Args writes a comma separated placeholder list, one per value.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(a[i])
	}
	return b
}

// Splice writes pre-rendered SQL and appends its arguments in order.
func (b *Builder) Splice(query string, args []any) *Builder {
	b.sb.WriteString(query)
	b.args = append(b.args, args...)
	return b
}

// AddError records an error. The first recorded error is returned by Query.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the recorded errors, if any.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Len returns the length of the statement written so far.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// Query returns the statement text, trimmed of trailing whitespace, and
// the collected arguments.
func (b *Builder) Query() (string, []any, error) {
	if len(b.errs) > 0 {
		return "", nil, b.errs[0]
	}
	return strings.TrimRight(b.sb.String(), " \t\n"), b.args, nil
}
