package orm

import (
	"context"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/contrib/dataloader"
	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
	"github.com/syssam/arbor/privacy"
)

// New returns a model of the given name holding attrs.
func (c *Client) New(name string, attrs map[string]any) (model.Model, error) {
	def, err := c.definition(name)
	if err != nil {
		return nil, err
	}
	return def.New(attrs), nil
}

// Insert runs the before-save callbacks, inserts m with its defaults and
// stores the generated primary key on it.
func (c *Client) Insert(ctx context.Context, m model.Model) error {
	def := m.Definition()
	if err := c.mutate(ctx, def, privacy.OpInsert, m, func() error { return c.insert(ctx, def, m) }); err != nil {
		return err
	}
	c.invalidate(ctx, def.Table)
	return nil
}

func (c *Client) insert(ctx context.Context, def *model.Definition, m model.Model) error {
	attrs := def.MergeDefaults(m.Attributes())
	for f, v := range attrs {
		m.Set(f, v)
	}
	var cols []string
	for _, f := range def.Fields {
		if v, ok := attrs[f]; ok && !(f == def.PrimaryKey && v == nil) {
			cols = append(cols, f)
		}
	}
	generated := def.PrimaryKey != "" && m.Get(def.PrimaryKey) == nil
	var (
		query string
		args  []any
		err   error
	)
	if len(cols) == 0 {
		query = c.dialect.InsertEmptyRow(def.Table, def.PrimaryKey)
	} else {
		stmt := &sql.InsertStatement{Table: def.Table, Columns: cols}
		for _, col := range cols {
			stmt.Values = append(stmt.Values, attrs[col])
		}
		if generated {
			stmt.Returning = def.PrimaryKey
		}
		if query, args, err = c.dialect.Insert(stmt); err != nil {
			return err
		}
	}
	if query, err = c.dialect.Rebind(query); err != nil {
		return err
	}
	if !generated {
		return c.conn.Exec(ctx, query, args, nil)
	}
	if c.dialect.Name() == dialect.Postgres {
		id, err := c.returning(ctx, query, args)
		if err != nil {
			return err
		}
		m.Set(def.PrimaryKey, id)
		return nil
	}
	var res sql.Result
	if err := c.conn.Exec(ctx, query, args, &res); err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.Set(def.PrimaryKey, id)
	return nil
}

// returning runs an INSERT ... RETURNING and scans the single value.
func (c *Client) returning(ctx context.Context, query string, args []any) (any, error) {
	var rows sql.Rows
	if err := c.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var id any
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return normalizeKey(id), nil
}

// Update runs the before-save callbacks and writes every declared
// attribute of m to its row.
func (c *Client) Update(ctx context.Context, m model.Model) error {
	def := m.Definition()
	if err := c.mutate(ctx, def, privacy.OpUpdate, m, func() error { return c.update(ctx, def, m) }); err != nil {
		return err
	}
	c.invalidate(ctx, def.Table)
	return nil
}

func (c *Client) update(ctx context.Context, def *model.Definition, m model.Model) error {
	where, err := primaryKeyWhere(def, m)
	if err != nil {
		return err
	}
	q := sql.NewQuery(def.Table)
	q.Type = sql.TypeUpdate
	attrs := m.Attributes()
	for _, f := range def.Fields {
		if v, ok := attrs[f]; ok && f != def.PrimaryKey {
			q.UpdateAttributes = append(q.UpdateAttributes, sql.Assignment{Column: f, Value: v})
		}
	}
	if len(q.UpdateAttributes) == 0 {
		return nil
	}
	if err := q.AddWhere(where); err != nil {
		return err
	}
	_, err = c.executor(q).Execute(ctx)
	return err
}

// Save inserts m when its primary key is unset and updates it otherwise.
func (c *Client) Save(ctx context.Context, m model.Model) error {
	def := m.Definition()
	if def.PrimaryKey != "" && m.Get(def.PrimaryKey) != nil {
		return c.Update(ctx, m)
	}
	return c.Insert(ctx, m)
}

// Delete deletes the row of m. It fails with a NotFoundError when no row
// was deleted.
func (c *Client) Delete(ctx context.Context, m model.Model) error {
	def := m.Definition()
	err := func() error {
		if err := evalMutation(ctx, def, modelMutation{op: privacy.OpDelete, m: m}); err != nil {
			return err
		}
		where, err := primaryKeyWhere(def, m)
		if err != nil {
			return err
		}
		q := sql.NewQuery(def.Table)
		if err := q.AddWhere(where); err != nil {
			return err
		}
		n, err := c.executor(q).Delete(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return arbor.NewNotFoundErrorWithID(def.Name, m.Get(def.PrimaryKey))
		}
		return nil
	}()
	if err != nil {
		return arbor.NewMutationError(def.Name, privacy.OpDelete.String(), wrapConstraint(err))
	}
	c.invalidate(ctx, def.Table)
	return nil
}

// FindByID returns the model called name whose primary key is id.
func (c *Client) FindByID(ctx context.Context, name string, id any) (model.Model, error) {
	def, err := c.definition(name)
	if err != nil {
		return nil, err
	}
	if def.PrimaryKey == "" {
		return nil, arbor.NewConfigError(def.Name, "has no primary key")
	}
	m, err := c.Query(name).Where(sql.Eq{def.Table + "." + def.PrimaryKey: id}).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, arbor.NewNotFoundErrorWithID(def.Name, id)
	}
	return m, nil
}

// FindByIDs returns the models called name whose primary keys are ids, in
// the order of ids. Every missing id is reported.
func (c *Client) FindByIDs(ctx context.Context, name string, ids ...any) ([]model.Model, error) {
	def, err := c.definition(name)
	if err != nil {
		return nil, err
	}
	if def.PrimaryKey == "" {
		return nil, arbor.NewConfigError(def.Name, "has no primary key")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	ms, err := c.Query(name).Where(sql.Eq{def.Table + "." + def.PrimaryKey: ids}).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = normalizeKey(id)
	}
	ordered, errs := dataloader.OrderByKeys(keys, ms, func(m model.Model) any {
		return normalizeKey(m.Get(def.PrimaryKey))
	})
	for i, e := range errs {
		if e != nil {
			errs[i] = arbor.NewNotFoundErrorWithID(def.Name, ids[i])
		}
	}
	if err := arbor.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return ordered, nil
}

// mutate evaluates the mutation policy of def, runs its callbacks around
// fn and wraps failures in a MutationError.
func (c *Client) mutate(ctx context.Context, def *model.Definition, op privacy.Op, m model.Model, fn func() error) error {
	if err := evalMutation(ctx, def, modelMutation{op: op, m: m}); err != nil {
		return arbor.NewMutationError(def.Name, op.String(), err)
	}
	for _, cb := range def.BeforeSave {
		if err := cb(ctx, m); err != nil {
			return arbor.NewMutationError(def.Name, op.String(), err)
		}
	}
	if err := fn(); err != nil {
		return arbor.NewMutationError(def.Name, op.String(), wrapConstraint(err))
	}
	for _, cb := range def.AfterSave {
		if err := cb(ctx, m); err != nil {
			return arbor.NewMutationError(def.Name, op.String(), err)
		}
	}
	return nil
}

func primaryKeyWhere(def *model.Definition, m model.Model) (sql.WhereClause, error) {
	if def.PrimaryKey == "" {
		return nil, arbor.NewConfigError(def.Name, "has no primary key")
	}
	id := m.Get(def.PrimaryKey)
	if id == nil {
		return nil, arbor.NewConfigError(def.Name, "primary key is not set")
	}
	return sql.Eq{def.PrimaryKey: id}, nil
}

// wrapConstraint turns driver constraint violations into ConstraintError.
func wrapConstraint(err error) error {
	if sql.IsConstraintError(err) && !arbor.IsConstraintError(err) {
		return arbor.NewConstraintError(err.Error(), err)
	}
	return err
}
