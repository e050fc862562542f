// Command relfilter compiles declarative JSON filter requests into SQL and
// runs them against a database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/relfilter/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
