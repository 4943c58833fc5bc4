package orm

import (
	"context"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
	"github.com/syssam/arbor/privacy"
)

// Builder is a fluent query over one model. In model mode, the default,
// it selects every field of the model and of its joined to-one relations
// and converts rows into models. Select switches it to raw mode.
//
// A builder is not safe for concurrent use. Copy it to derive variants of
// a base query.
//
// Misuse such as an unknown relation is recorded by the call that
// commits it. Err reports it immediately and every terminal operation
// returns it.
type Builder struct {
	client      *Client
	def         *model.Definition
	query       *sql.Query
	joins       []*modelJoin
	fetches     []*relationToFetch
	groups      []aliasGroup
	aliases     []string
	selectModel bool
	cacheTTL    time.Duration
	cached      bool
	err         error
}

func newBuilder(c *Client, name, alias string) *Builder {
	b := &Builder{client: c, selectModel: true}
	def, err := c.definition(name)
	if err != nil {
		b.def = &model.Definition{Name: name}
		b.query = sql.NewQuery("")
		b.err = err
		return b
	}
	b.def = def
	b.query = sql.NewQuery(def.Table)
	b.query.Alias = alias
	b.query.FetchMode = sql.FetchAssoc
	b.aliases = []string{b.query.FromAlias()}
	b.selectColumns(b.query.FromAlias(), def)
	return b
}

func (b *Builder) record(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// Err returns the first misuse recorded by the builder.
func (b *Builder) Err() error { return b.err }

// Definition returns the definition of the root model.
func (b *Builder) Definition() *model.Definition { return b.def }

// Where adds a condition. Conditions are ANDed.
func (b *Builder) Where(c sql.WhereClause) *Builder {
	b.record(b.query.AddWhere(c))
	return b
}

// Order sets the ORDER BY columns.
func (b *Builder) Order(columns ...string) *Builder {
	b.query.Order = columns
	return b
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(n int) *Builder {
	b.query.Offset = n
	return b
}

// Limit sets the maximum number of rows.
func (b *Builder) Limit(n int) *Builder {
	b.query.Limit = n
	return b
}

// LockForUpdate adds FOR UPDATE where the dialect supports it.
func (b *Builder) LockForUpdate() *Builder {
	b.query.LockForUpdate = true
	return b
}

// Options replaces the options bag of the query.
func (b *Builder) Options(opts map[string]any) *Builder {
	b.query.Options = maps.Clone(opts)
	return b
}

// Join joins the relations named by selector, "rel" or "rel1->rel2", with
// a LEFT join. Joined to-one models are attached to the root model;
// to-many joins only filter.
func (b *Builder) Join(selector string, opts ...JoinOption) *Builder {
	return b.join(selector, sql.LeftJoin, opts)
}

// LeftJoin is an alias of Join.
func (b *Builder) LeftJoin(selector string, opts ...JoinOption) *Builder {
	return b.join(selector, sql.LeftJoin, opts)
}

// InnerJoin is like Join with an INNER join.
func (b *Builder) InnerJoin(selector string, opts ...JoinOption) *Builder {
	return b.join(selector, sql.InnerJoin, opts)
}

// RightJoin is like Join with a RIGHT join.
func (b *Builder) RightJoin(selector string, opts ...JoinOption) *Builder {
	return b.join(selector, sql.RightJoin, opts)
}

// Using adds the relations of selector as USING tables of DeleteAll.
func (b *Builder) Using(selector string, opts ...JoinOption) *Builder {
	return b.join(selector, sql.UsingJoin, opts)
}

// With loads the relations of selector with one extra query per relation
// after the root models are fetched. Nested selectors load every hop.
func (b *Builder) With(selector string) *Builder {
	return b.with(selector)
}

// Select switches the builder to raw mode: rows hold the given columns in
// the FetchNum shape and are read with FetchRow, FetchRows or RowIterator.
func (b *Builder) Select(columns ...string) *Builder {
	b.selectModel = false
	b.query.Columns = make([]sql.Column, 0, len(columns))
	for _, c := range columns {
		b.query.Columns = append(b.query.Columns, sql.Column{Expr: c})
	}
	b.query.FetchMode = sql.FetchNum
	return b
}

// SelectDistinct is like Select with SELECT DISTINCT.
func (b *Builder) SelectDistinct(columns ...string) *Builder {
	b.query.Distinct = true
	return b.Select(columns...)
}

// FetchMode sets the shape of raw rows.
func (b *Builder) FetchMode(mode sql.FetchMode) *Builder {
	if b.selectModel {
		b.record(arbor.NewConfigError(b.def.Name, "fetch mode requires Select"))
		return b
	}
	b.query.FetchMode = mode
	return b
}

// GroupBy sets the GROUP BY columns. It requires Select; grouping a model
// select is an error.
func (b *Builder) GroupBy(columns ...string) *Builder {
	if b.selectModel {
		b.record(arbor.NewConfigError(b.def.Name, `cannot use group by without specifying columns, e.g. Select("column", "count(*)").GroupBy("column")`))
		return b
	}
	b.query.GroupBy = columns
	return b
}

// Cache stores the results of model fetches, and of raw fetches in the
// FetchAssoc shape, in the client cache for ttl. Zero means no expiry.
func (b *Builder) Cache(ttl time.Duration) *Builder {
	b.cached = true
	b.cacheTTL = ttl
	return b
}

// Copy returns an independent builder sharing the model metadata.
func (b *Builder) Copy() *Builder {
	c := *b
	c.query = b.query.Clone()
	c.joins = slices.Clone(b.joins)
	c.fetches = slices.Clone(b.fetches)
	c.groups = slices.Clone(b.groups)
	c.aliases = slices.Clone(b.aliases)
	return &c
}

// Query returns the underlying query.
func (b *Builder) Query() *sql.Query { return b.query }

// SQL renders the SELECT the builder would run.
func (b *Builder) SQL() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.client.executor(b.selectQuery()).SQL()
}

// selectQuery returns the query of a fetch. Model selects are marked for
// the humanizer.
func (b *Builder) selectQuery() *sql.Query {
	q := b.query.Clone()
	if b.selectModel {
		q.Comment = sql.ModelMarker
	}
	return q
}

// Count returns the number of matching rows.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	scoped, err := b.authorized(ctx)
	if err != nil {
		return 0, err
	}
	return b.client.executor(scoped.query).Count(ctx)
}

// Fetch returns the first matching model, or nil when there is none.
func (b *Builder) Fetch(ctx context.Context) (model.Model, error) {
	ms, err := b.fetchModels(ctx, 1)
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	return ms[0], nil
}

// FetchAll returns every matching model.
func (b *Builder) FetchAll(ctx context.Context) ([]model.Model, error) {
	return b.fetchModels(ctx, 0)
}

func (b *Builder) fetchModels(ctx context.Context, limit int) ([]model.Model, error) {
	if err := b.modelMode(); err != nil {
		return nil, err
	}
	scoped, err := b.authorized(ctx)
	if err != nil {
		return nil, err
	}
	q := scoped.selectQuery()
	if limit > 0 && q.Limit <= 0 {
		q.Limit = limit
	}
	rows, err := scoped.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	return scoped.process(ctx, rows)
}

// FetchIterator streams matching models. Rows are read and converted
// batchSize at a time, a non-positive size meaning the client default,
// while models are yielded one by one in result order. Each batch is its
// own LIMIT/OFFSET query, ordered by the primary key unless an order is
// set, so no cursor stays open while relations load or the caller runs.
func (b *Builder) FetchIterator(ctx context.Context, batchSize int) iter.Seq2[model.Model, error] {
	if err := b.modelMode(); err != nil {
		return func(yield func(model.Model, error) bool) { yield(nil, err) }
	}
	scoped, err := b.authorized(ctx)
	if err != nil {
		return func(yield func(model.Model, error) bool) { yield(nil, err) }
	}
	if batchSize <= 0 {
		batchSize = b.client.batchSize
	}
	q := scoped.selectQuery()
	if len(q.Order) == 0 && b.def.PrimaryKey != "" {
		q.Order = []string{q.FromAlias() + "." + b.def.PrimaryKey}
	}
	pages := paged(func(offset, limit int) ([]map[string]any, error) {
		page := q.Clone()
		page.Offset, page.Limit = offset, limit
		return scoped.rows(ctx, page)
	}, q.Offset, q.Limit, batchSize)
	return unbatched(transformed(pages, func(batch []map[string]any) ([]model.Model, error) {
		return scoped.process(ctx, batch)
	}))
}

func (b *Builder) modelMode() error {
	if b.err != nil {
		return b.err
	}
	if !b.selectModel {
		return arbor.NewConfigError(b.def.Name, "builder selects raw columns; use FetchRow, FetchRows or RowIterator")
	}
	return nil
}

// FetchRow returns the first raw row, or nil.
func (b *Builder) FetchRow(ctx context.Context) (any, error) {
	scoped, err := b.authorized(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.executor(scoped.selectQuery()).Fetch(ctx)
}

// FetchRows returns every raw row shaped by the fetch mode.
func (b *Builder) FetchRows(ctx context.Context) ([]any, error) {
	scoped, err := b.authorized(ctx)
	if err != nil {
		return nil, err
	}
	q := scoped.selectQuery()
	if q.FetchMode != sql.FetchAssoc {
		return b.client.executor(q).FetchAll(ctx)
	}
	rows, err := scoped.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

// RowIterator streams raw rows shaped by the fetch mode.
func (b *Builder) RowIterator(ctx context.Context) iter.Seq2[any, error] {
	scoped, err := b.authorized(ctx)
	if err != nil {
		return func(yield func(any, error) bool) { yield(nil, err) }
	}
	return b.client.executor(scoped.selectQuery()).FetchIterator(ctx)
}

// rows reads q as maps, through the client cache when enabled.
func (b *Builder) rows(ctx context.Context, q *sql.Query) ([]map[string]any, error) {
	exec := b.client.executor(q)
	cache := b.client.cache
	if !b.cached || cache == nil {
		return exec.Rows(ctx)
	}
	query, args, err := exec.SQL()
	if err != nil {
		return nil, err
	}
	key := arbor.CacheKey{Table: b.def.Table, Query: query, Args: args}.String()
	if data, err := cache.Get(ctx, key); err == nil && data != nil {
		if rows, err := arbor.DecodeRows(data); err == nil {
			return rows, nil
		}
	}
	rows, err := exec.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := arbor.EncodeRows(rows); err == nil {
		if err := cache.Set(ctx, key, data, b.cacheTTL); err != nil {
			b.client.log.WarnContext(ctx, "cache write failed", "table", b.def.Table, "error", err)
		}
	}
	return rows, nil
}

// Update sets attributes on every matching row and returns the number of
// affected rows. Model callbacks are not run.
func (b *Builder) Update(ctx context.Context, attributes map[string]any) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	scoped, err := b.authorizeBulk(ctx, privacy.OpUpdateMany, attributes)
	if err != nil {
		return 0, arbor.NewMutationError(b.def.Name, privacy.OpUpdateMany.String(), err)
	}
	q := scoped.query.Clone()
	q.Type = sql.TypeUpdate
	q.UpdateAttributes = make([]sql.Assignment, 0, len(attributes))
	for _, col := range slices.Sorted(maps.Keys(attributes)) {
		q.UpdateAttributes = append(q.UpdateAttributes, sql.Assignment{Column: col, Value: attributes[col]})
	}
	n, err := b.client.executor(q).Execute(ctx)
	if err != nil {
		return 0, err
	}
	b.client.invalidate(ctx, b.def.Table)
	return n, nil
}

// DeleteAll deletes every matching row and returns the number of deleted
// rows. Model callbacks are not run; see DeleteEach.
func (b *Builder) DeleteAll(ctx context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	scoped, err := b.authorizeBulk(ctx, privacy.OpDeleteMany, nil)
	if err != nil {
		return 0, arbor.NewMutationError(b.def.Name, privacy.OpDeleteMany.String(), err)
	}
	n, err := b.client.executor(scoped.query).Delete(ctx)
	if err != nil {
		return 0, err
	}
	b.client.invalidate(ctx, b.def.Table)
	return n, nil
}

// DeleteEach fetches the matching models and deletes them one by one
// through Client.Delete. It returns the number of deleted models and the
// errors of the others.
func (b *Builder) DeleteEach(ctx context.Context) (int, error) {
	ms, err := b.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	var (
		n    int
		errs []error
	)
	for _, m := range ms {
		if err := b.client.Delete(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, arbor.NewAggregateError(errs...)
}
