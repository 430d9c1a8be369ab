// Package cli implements the branchtabs command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/app"
	"github.com/dshills/branchtabs/internal/config"
	"github.com/dshills/branchtabs/internal/limit"
)

var version = "dev"

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	configDir string
	logLevel  string
	yes       bool
	json      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "branchtabs",
		Version: version,
		Short:   "Open the files a branch changed when you switch to it",
		Long: `branchtabs watches git repositories for branch switches.

When the checked-out branch changes it diffs the branch against its base,
filters the result and opens the changed files as tabs, closing the tabs it
opened for the previous branch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configDir, "config", "c", "", "Directory holding config.toml and ignored.yaml")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Accept capped opens without prompting")
	flags.BoolVar(&opts.json, "json", false, "Output in JSON format")

	root.AddCommand(
		newWatchCommand(opts),
		newResolveCommand(opts),
		newIgnoreCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the branchtabs version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// newApplication builds an application from the persistent flags. The
// returned logger must be synced by the caller.
func newApplication(cmd *cobra.Command, opts *globalOptions) (*app.Application, *zap.Logger, error) {
	level, err := app.ParseLogLevel(opts.logLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(app.LoggerConfig{
		Level:       level,
		Output:      cmd.ErrOrStderr(),
		Development: true,
	})

	paths := config.DefaultPaths()
	if opts.configDir != "" {
		paths.UserDir = opts.configDir
	}

	var prompter limit.Prompter = limit.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
	if opts.yes {
		prompter = limit.Static{Accept: true}
	}

	a := app.New(app.Options{
		Paths:    &paths,
		Logger:   logger,
		Prompter: prompter,
	})
	return a, logger, nil
}

// dirsOrCwd returns args, or the working directory when args is empty.
func dirsOrCwd(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return []string{wd}, nil
}
