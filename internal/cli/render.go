package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/arbor/config"
	"github.com/syssam/arbor/dialect/sql"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Dialect   string
	Alias     string
	Columns   []string
	Where     []string
	Eq        []string
	Set       []string
	Order     []string
	GroupBy   []string
	Limit     int
	Offset    int
	Count     bool
	Delete    bool
	Distinct  bool
	ForUpdate bool
}

// RenderResult is the rendered statement.
type RenderResult struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Args    []any  `json:"args"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <table>",
		Short: "Render a statement in a SQL dialect",
		Long: `Render builds a SELECT, COUNT, UPDATE or DELETE over a table from
flags and prints it the way the given dialect sends it to the database.

The dialect defaults to the one of the configuration file.`,
		Example: `  arbor render products --dialect postgres --eq name=ipad --limit 10
  arbor render products --dialect mysql --set name=iphone --eq id=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect (mysql|postgres|sqlite)")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "table alias")
	cmd.Flags().StringSliceVar(&opts.Columns, "column", nil, "selected column expression")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "raw WHERE condition")
	cmd.Flags().StringArrayVar(&opts.Eq, "eq", nil, "column=value equality condition")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "column=value assignment, renders an UPDATE")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "ORDER BY expression")
	cmd.Flags().StringSliceVar(&opts.GroupBy, "group-by", nil, "GROUP BY column")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "LIMIT")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "OFFSET")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "render a COUNT")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "render a DELETE")
	cmd.Flags().BoolVar(&opts.Distinct, "distinct", false, "SELECT DISTINCT")
	cmd.Flags().BoolVar(&opts.ForUpdate, "for-update", false, "lock selected rows")
	cmd.MarkFlagsMutuallyExclusive("count", "delete", "set")

	return cmd
}

func runRender(opts *RenderOptions, table string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	d, err := renderDialect(opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "no dialect", err)
	}
	f.VerboseLog("rendering for %s", d.Name())

	q, err := buildRenderQuery(opts, table)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, "invalid statement", err)
	}
	query, args, err := sql.Prepare(nil, d, q).SQL()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeRender, "render failed", err)
	}
	if args == nil {
		args = []any{}
	}
	text := query
	if len(args) > 0 {
		text += fmt.Sprintf("\nargs: %v", args)
	}
	return f.Success(RenderResult{Dialect: d.Name(), SQL: query, Args: args}, text)
}

func renderDialect(opts *RenderOptions) (sql.Dialect, error) {
	if opts.Dialect != "" {
		return sql.ForName(opts.Dialect)
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("pass --dialect or a configuration file: %w", err)
	}
	return cfg.Dialect()
}

func buildRenderQuery(opts *RenderOptions, table string) (*sql.Query, error) {
	q := sql.NewQuery(table)
	q.Alias = opts.Alias
	q.Order = opts.Order
	q.GroupBy = opts.GroupBy
	q.Limit = opts.Limit
	q.Offset = opts.Offset
	q.Distinct = opts.Distinct
	q.LockForUpdate = opts.ForUpdate
	for _, c := range opts.Columns {
		q.AddColumn(c, "")
	}
	for _, w := range opts.Where {
		if err := q.AddWhere(sql.Raw(w)); err != nil {
			return nil, err
		}
	}
	if len(opts.Eq) > 0 {
		eq := sql.Eq{}
		for _, pair := range opts.Eq {
			col, v, err := splitPair(pair)
			if err != nil {
				return nil, err
			}
			eq[col] = v
		}
		if err := q.AddWhere(eq); err != nil {
			return nil, err
		}
	}
	switch {
	case opts.Count:
		q.Type = sql.TypeCount
	case opts.Delete:
		q.Type = sql.TypeDelete
	case len(opts.Set) > 0:
		q.Type = sql.TypeUpdate
		for _, pair := range opts.Set {
			col, v, err := splitPair(pair)
			if err != nil {
				return nil, err
			}
			q.UpdateAttributes = append(q.UpdateAttributes, sql.Assignment{Column: col, Value: v})
		}
	}
	return q, nil
}

// splitPair parses column=value. Integer values are passed as integers
// and "null" as NULL.
func splitPair(pair string) (string, any, error) {
	col, v, ok := strings.Cut(pair, "=")
	if !ok || col == "" {
		return "", nil, fmt.Errorf("expected column=value, got %q", pair)
	}
	if v == "null" {
		return col, nil, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return col, n, nil
	}
	return col, v, nil
}
