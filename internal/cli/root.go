package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/relfilter/internal/store"
)

// RootOptions holds global flags for all commands. Each value can also come
// from a RELFILTER_* environment variable or relfilter.yaml.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Driver     string
	DB         string
	Schema     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// configKeys are the persistent flags resolved through viper.
var configKeys = []string{"verbose", "format", "driver", "db", "schema"}

// NewRootCommand creates the root command for the relfilter CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "relfilter",
		Short: "relfilter - declarative filters over relational data",
		Long: `Compile declarative JSON filter requests into predicates and run them.

Filters are lists of comparison, group and relation nodes. Dotted attribute
paths traverse relations as existence subqueries.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, opts); err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./relfilter.yaml)")
	flags.StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|pgx|mysql)")
	flags.StringVar(&opts.DB, "db", "", "database DSN or SQLite path")
	flags.StringVar(&opts.Schema, "schema", "", "CUE relation schema file or directory")
	for _, key := range configKeys {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("bind flag %q: %v", key, err))
		}
	}

	// Add subcommands
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// loadConfig resolves configKeys from flags, environment and the optional
// config file, in that order of precedence, and stores them in opts.
func loadConfig(v *viper.Viper, opts *RootOptions) error {
	v.SetEnvPrefix("RELFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("relfilter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	opts.Verbose = v.GetBool("verbose")
	opts.Format = v.GetString("format")
	opts.Driver = v.GetString("driver")
	opts.DB = v.GetString("db")
	opts.Schema = v.GetString("schema")
	return nil
}

// Logger returns a slog logger backed by a zerolog console writer on w.
// Verbose lowers the level to Debug.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
	return slog.New(slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler())
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
