package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/accelgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// flags holds the persistent flag values shared by every subcommand.
type flags struct {
	catalogue      string
	logLevel       string
	logFormat      string
	cache          bool
	solverVariants bool
	vectorize      bool
}

// NewRootCommand builds the accelgrid command tree. Results go to outW, logs
// and diagnostics to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "accelgrid",
		Short: "Compile a catalogue of numeric modules into a fast, rebound namespace.",
		Long: `accelgrid loads the modules of a catalogue, patches and compiles their
functions, converts literal lookup tables into dense arrays and publishes the
result as a single namespace.

Without --catalogue the bundled fluids catalogue is used. Every flag can also
be set through an ACCELGRID_* environment variable; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          wrapArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&f.catalogue, "catalogue", "c", "", "Path to a .yaml, .yml or .hcl catalogue file.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.BoolVar(&f.cache, "cache", false, "Reuse compiled functions across runs in this process.")
	pf.BoolVar(&f.solverVariants, "solver-variants", false, "Use declared native variants instead of rewrites.")
	pf.BoolVar(&f.vectorize, "vectorize", false, "Compile every function with element-wise broadcasting.")

	newApp := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := f.config(cmd)
		if err != nil {
			return nil, err
		}
		return app.NewApp(outW, errW, cfg)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every published name with its module and kind.",
			Args:  wrapArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				return a.List(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "call NAME [ARG...]",
			Short: "Call a published function and print the result.",
			Long: `Call a published function. Every argument is a constant HCL expression,
for example 1e5, [1, 2, 3] or "steel".`,
			Args: wrapArgs(cobra.MinimumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				return a.Call(cmd.Context(), args[0], args[1:])
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Run the transformation and summarise how functions were compiled.",
			Args:  wrapArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				return a.Check(cmd.Context())
			},
		},
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func wrapArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// config merges the environment with explicitly set flags and validates
// the result.
func (f *flags) config(cmd *cobra.Command) (*app.Config, error) {
	cfg := app.ApplyEnv(app.Config{
		CataloguePath:  f.catalogue,
		LogLevel:       f.logLevel,
		LogFormat:      f.logFormat,
		Cache:          f.cache,
		SolverVariants: f.solverVariants,
		Vectorize:      f.vectorize,
	})

	set := cmd.Flags().Changed
	if set("catalogue") {
		cfg.CataloguePath = f.catalogue
	}
	if set("log-level") {
		cfg.LogLevel = strings.ToLower(f.logLevel)
	}
	if set("log-format") {
		cfg.LogFormat = strings.ToLower(f.logFormat)
	}
	if set("cache") {
		cfg.Cache = f.cache
	}
	if set("solver-variants") {
		cfg.SolverVariants = f.solverVariants
	}
	if set("vectorize") {
		cfg.Vectorize = f.vectorize
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

// Code returns the process exit code for err.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Describe formats err for the terminal.
func Describe(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
