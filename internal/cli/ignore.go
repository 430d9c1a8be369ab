package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIgnoreCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage files that are never opened for a repository",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <dir> <path>...",
			Short: "Never open the given repository-relative paths",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIgnore(cmd, opts, args[0], func(ig ignoreEditor, root string) error {
					if err := ig.Add(root, args[1:]...); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), fmt.Sprintf("ignoring %d path(s) in %s", len(args)-1, root))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <dir> <path>...",
			Short: "Stop ignoring the given paths",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIgnore(cmd, opts, args[0], func(ig ignoreEditor, root string) error {
					if err := ig.Remove(root, args[1:]...); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), fmt.Sprintf("removed %d path(s) from %s", len(args)-1, root))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list <dir>",
			Short: "List the ignored paths of a repository",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIgnore(cmd, opts, args[0], func(ig ignoreEditor, root string) error {
					paths, err := ig.List(root)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if opts.json {
						if paths == nil {
							paths = []string{}
						}
						return outputJSON(out, paths)
					}
					if len(paths) == 0 {
						printDim(out, "no ignored paths")
						return nil
					}
					for _, p := range paths {
						fmt.Fprintln(out, p)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

type ignoreEditor interface {
	Add(root string, paths ...string) error
	Remove(root string, paths ...string) error
	List(root string) ([]string, error)
}

// runIgnore resolves dir to its repository root and runs fn on the ignore store.
func runIgnore(cmd *cobra.Command, opts *globalOptions, dir string, fn func(ignoreEditor, string) error) error {
	a, logger, err := newApplication(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = a.Close() }()

	repos, err := a.Discover([]string{dir})
	if err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}
	return fn(a.Ignores(), repos[0].Path())
}
