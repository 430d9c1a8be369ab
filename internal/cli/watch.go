package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Watch repositories and open changed files on branch switches",
		Long: `Watch the repositories containing each directory (default: the current
directory) until interrupted. Every branch switch closes the tabs opened for
the previous branch and opens the files the new branch changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := dirsOrCwd(args)
			if err != nil {
				return err
			}

			a, logger, err := newApplication(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer func() { _ = a.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.Watch(ctx, dirs)
		},
	}
}
