package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/arbor/dialect/sql"
)

// NewHumanizeCommand creates the humanize command.
func NewHumanizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "humanize [sql]",
		Short: "Shorten model selects for reading",
		Long: `Humanize collapses the column lists of model selects, as logged by
arbor's debug driver, into table.* and drops the model marker.

The statement is read from standard input when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHumanize(rootOpts, args, cmd)
		},
	}
}

func runHumanize(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	var query string
	if len(args) == 1 {
		query = args[0]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeInput, "read statement", err)
		}
		query = string(b)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return f.Fail(ExitCommandError, ErrCodeInput, "no statement given", nil)
	}
	h := sql.Humanize(query)
	return f.Success(map[string]string{"sql": h}, h)
}
