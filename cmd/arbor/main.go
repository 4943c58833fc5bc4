// Command arbor renders and humanizes arbor SQL and checks database
// configurations.
package main

import (
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/syssam/arbor/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
