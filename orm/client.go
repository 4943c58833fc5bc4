package orm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syssam/arbor"
	"github.com/syssam/arbor/config"
	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
	"github.com/syssam/arbor/model"
)

// Client binds a model registry to a database connection. Every builder
// and lifecycle call goes through a Client; there is no package level
// default connection.
type Client struct {
	driver    dialect.Driver
	conn      dialect.ExecQuerier
	tx        dialect.Tx
	dialect   sql.Dialect
	registry  *model.Registry
	cache     arbor.Cache
	log       *slog.Logger
	stats     *sql.StatsDriver
	batchSize int
}

// Option configures a Client.
type Option func(*Client) error

// WithDialect overrides the dialect derived from the driver name.
func WithDialect(d sql.Dialect) Option {
	return func(c *Client) error {
		if d == nil {
			return arbor.NewConfigError("", "dialect cannot be nil")
		}
		c.dialect = d
		return nil
	}
}

// WithLogger sets the logger used for batch loads and driver logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		if l == nil {
			return arbor.NewConfigError("", "logger cannot be nil")
		}
		c.log = l
		return nil
	}
}

// WithCache enables result caching for builders that ask for it.
func WithCache(cache arbor.Cache) Option {
	return func(c *Client) error {
		c.cache = cache
		return nil
	}
}

// WithFetchBatchSize sets the default batch size of FetchIterator.
func WithFetchBatchSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return arbor.NewConfigError("", fmt.Sprintf("fetch batch size must be positive, got %d", n))
		}
		c.batchSize = n
		return nil
	}
}

// NewClient returns a client running queries on drv. The dialect is
// selected from drv.Dialect() unless WithDialect is given.
func NewClient(drv dialect.Driver, reg *model.Registry, opts ...Option) (*Client, error) {
	if drv == nil || reg == nil {
		return nil, arbor.NewConfigError("", "client needs a driver and a registry")
	}
	c := &Client{
		driver:    drv,
		conn:      drv,
		registry:  reg,
		log:       slog.New(slog.DiscardHandler),
		batchSize: config.DefaultFetchBatchSize,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.dialect == nil {
		d, err := sql.ForName(drv.Dialect())
		if err != nil {
			return nil, err
		}
		c.dialect = d
	}
	return c, nil
}

// Open connects to the database described by cfg. The driver is wrapped
// with a StatsDriver when cfg.Stats is set and with a DebugDriver when
// cfg.Debug is set.
func Open(cfg *config.Config, reg *model.Registry, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	drv, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	}
	opts = append([]Option{WithDialect(d), WithFetchBatchSize(cfg.FetchBatchSize)}, opts...)
	c, err := NewClient(drv, reg, opts...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	if cfg.Stats {
		c.stats = sql.NewStatsDriver(c.driver,
			sql.WithSlowThreshold(cfg.SlowThreshold),
			sql.WithSlowQueryLog(c.log),
			sql.WithErrorClassifier(d),
		)
		c.driver = c.stats
	}
	if cfg.Debug {
		c.driver = sql.NewDebugDriver(c.driver, c.log)
	}
	c.conn = c.driver
	return c, nil
}

// Dialect returns the SQL dialect of the client.
func (c *Client) Dialect() sql.Dialect { return c.dialect }

// Registry returns the model registry of the client.
func (c *Client) Registry() *model.Registry { return c.registry }

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver { return c.driver }

// Stats returns the statement counters when the client was opened with
// stats enabled.
func (c *Client) Stats() (sql.StatsSnapshot, bool) {
	if c.stats == nil {
		return sql.StatsSnapshot{}, false
	}
	return c.stats.QueryStats().Stats(), true
}

// Close closes the underlying driver.
func (c *Client) Close() error {
	if c.tx != nil {
		return errors.New("arbor: cannot close a transactional client")
	}
	return c.driver.Close()
}

// Query returns a builder selecting models of the given name.
func (c *Client) Query(name string) *Builder {
	return newBuilder(c, name, "")
}

// QueryAs is like Query with an alias for the root table.
func (c *Client) QueryAs(name, alias string) *Builder {
	return newBuilder(c, name, alias)
}

// Transaction runs fn with a client bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
// Calling Transaction on a transactional client reuses its transaction.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error) error {
	if c.tx != nil {
		return fn(c)
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("arbor: starting a transaction: %w", err)
	}
	tc := *c
	tc.tx = tx
	tc.conn = tx
	if err := fn(&tc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &arbor.RollbackError{Err: fmt.Errorf("%w: %v", err, rerr)}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("arbor: committing transaction: %w", err)
	}
	return nil
}

func (c *Client) executor(q *sql.Query) *sql.Executor {
	return sql.Prepare(c.conn, c.dialect, q)
}

func (c *Client) definition(name string) (*model.Definition, error) {
	return c.registry.Definition(name)
}

// invalidate drops the cached results read from table.
func (c *Client) invalidate(ctx context.Context, table string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeletePrefix(ctx, arbor.TablePrefix(table)); err != nil {
		c.log.WarnContext(ctx, "cache invalidation failed", "table", table, "error", err)
	}
}
