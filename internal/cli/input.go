package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/schema"
)

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// loadRequest reads and decodes a filter request document.
func loadRequest(cmd *cobra.Command, formatter *OutputFormatter, path string) (filter.Request, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return filter.Request{}, formatter.Fail(ExitCommandError, ErrCodeInput,
			fmt.Sprintf("cannot read request %s: %v", path, err), nil)
	}
	req, err := filter.ParseRequest(data)
	if err != nil {
		return filter.Request{}, formatter.Fail(ExitFailure, ErrCodeInput,
			fmt.Sprintf("invalid request %s: %v", path, err), nil)
	}
	return req, nil
}

// schemaArgs splits "[schema] <filter.json>" arguments. With a single
// argument the schema comes from --schema, RELFILTER_SCHEMA or the config
// file.
func schemaArgs(opts *RootOptions, args []string) (schemaPath, requestPath string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	if opts.Schema == "" {
		return "", "", NewExitError(ExitCommandError, "no schema given: pass it as the first argument or set --schema")
	}
	return opts.Schema, args[0], nil
}

// loadSchema loads a CUE relation schema, reporting failures through formatter.
func loadSchema(formatter *OutputFormatter, path string) (*schema.Schema, error) {
	sch, err := schema.Load(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeSchema,
			fmt.Sprintf("cannot load schema %s", path), err.Error())
	}
	return sch, nil
}
