package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/persistor/internal/model"

	// Registers the REST types on the default registry.
	_ "github.com/roach88/persistor/internal/rest"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger resolved from them before a subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	LogFile    string

	// Registry resolves type names in documents. Defaults to
	// model.DefaultRegistry.
	Registry *model.Registry

	config    *viper.Viper
	logger    *slog.Logger
	logCloser io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the persistor CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the persistor CLI with args. The log file opened for the run
// is closed whether or not the command succeeds.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return run(ctx, cmd, opts)
}

// run executes cmd and closes the log file afterwards. Cobra skips the
// post-run hooks when a command fails.
func run(ctx context.Context, cmd *cobra.Command, opts *RootOptions) error {
	err := cmd.ExecuteContext(ctx)
	if cerr := opts.closeLog(); cerr != nil && err == nil {
		err = WrapExitError(ExitCommandError, "failed to close log file", cerr)
	}
	return err
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{Registry: model.DefaultRegistry()}

	cmd := &cobra.Command{
		Use:   "persistor",
		Short: "Persist object graphs and verify them against benchmarks",
		Long: `Persistor converts persistable documents between JSON, XML and flat
properties, and verifies captured documents against benchmarks field by field.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			config, err := newConfig(opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read config", err)
			}
			opts.config = config
			opts.logger, opts.logCloser = newLogger(config, opts.LogFile, opts.Verbose, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLog()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+configFileName+")")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "write logs to a rotating file")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewVarsCommand(opts))

	return cmd, opts
}

// closeLog closes the log file of the run, once.
func (o *RootOptions) closeLog() error {
	if o.logCloser == nil {
		return nil
	}
	c := o.logCloser
	o.logCloser = nil
	return c.Close()
}

// Logger returns the logger configured for the running command.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// Config returns the configuration resolved for the running command.
func (o *RootOptions) Config() *viper.Viper {
	if o.config == nil {
		o.config, _ = newConfig(o.ConfigFile)
	}
	return o.config
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
