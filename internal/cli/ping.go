package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/arbor/config"
	"github.com/syssam/arbor/dialect/sql"
)

// PingOptions holds flags for the ping command.
type PingOptions struct {
	*RootOptions
	Timeout time.Duration
}

// PingResult describes a reachable database.
type PingResult struct {
	Dialect string `json:"dialect"`
	Driver  string `json:"driver"`
	Latency string `json:"latency"`
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the configured database is reachable",
		Long: `Ping loads the configuration file, opens the configured driver and
pings the database. It exits with 1 when the database cannot be reached
and with 2 when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "ping timeout")

	return cmd
}

func runPing(opts *PingOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	d, err := cfg.Dialect()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	drv, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "open "+cfg.Driver, err)
	}
	defer drv.Close()
	f.VerboseLog("pinging %s database with driver %s", d.Name(), cfg.Driver)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	start := time.Now()
	if err := drv.Ping(ctx); err != nil {
		code := ErrCodeDatabase
		if d.IsConnectionError(err) {
			code = ErrCodeConnection
		}
		return f.Fail(ExitFailure, code, "ping failed", err)
	}
	latency := time.Since(start)
	return f.Success(
		PingResult{Dialect: d.Name(), Driver: cfg.Driver, Latency: latency.String()},
		fmt.Sprintf("ok: %s via %s in %s", d.Name(), cfg.Driver, latency.Round(time.Microsecond)),
	)
}
