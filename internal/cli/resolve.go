package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/branchtabs/internal/app"
)

// maxParallelResolves bounds concurrent git invocations.
const maxParallelResolves = 4

type resolvedFile struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type resolveOutput struct {
	Repository string         `json:"repository"`
	Branch     string         `json:"branch"`
	Upstream   string         `json:"upstream,omitempty"`
	BaseRef    string         `json:"baseRef,omitempty"`
	Excluded   bool           `json:"excluded"`
	Changed    int            `json:"changed"`
	Files      []resolvedFile `json:"files"`
}

func newResolveOutput(r app.ResolveReport) resolveOutput {
	out := resolveOutput{
		Repository: r.Root,
		Branch:     r.Branch,
		Upstream:   r.Upstream,
		BaseRef:    r.Result.BaseRef,
		Excluded:   r.Excluded,
		Changed:    r.Result.Changed,
		Files:      make([]resolvedFile, 0, len(r.Result.Files)),
	}
	for _, f := range r.Result.Files {
		out.Files = append(out.Files, resolvedFile{Path: f.Path, Kind: f.Kind.String()})
	}
	return out
}

func newResolveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [dir...]",
		Short: "Print the files a branch switch would open",
		Long: `Resolve the base reference and the filtered changed files for the
current branch of each repository, without opening anything.`,
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

			reports := make([]app.ResolveReport, len(dirs))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxParallelResolves)
			for i, dir := range dirs {
				i, dir := i, dir
				g.Go(func() error {
					r, err := a.Resolve(ctx, dir)
					if err != nil {
						return err
					}
					reports[i] = r
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				results := make([]resolveOutput, len(reports))
				for i, r := range reports {
					results[i] = newResolveOutput(r)
				}
				return outputJSON(out, results)
			}

			for _, r := range reports {
				printHeader(out, r.Root)
				printLabelValue(out, "Branch", branchLabel(r.Branch))
				switch {
				case r.Branch == "":
					printDim(out, "  HEAD is detached")
					continue
				case r.Excluded:
					printWarning(out, "branch is excluded")
					continue
				case r.Result.BaseRef == "":
					printWarning(out, "no base reference found")
					continue
				}
				printLabelValue(out, "Base", r.Result.BaseRef)
				printLabelValue(out, "Changed", fmt.Sprintf("%d (%d after filters)", r.Result.Changed, len(r.Result.Files)))
				for _, f := range r.Result.Files {
					fmt.Fprintf(out, "    %s %s\n", f.Kind.String()[:1], f.Path)
				}
			}
			return nil
		},
	}
}

func branchLabel(branch string) string {
	if branch == "" {
		return "(detached)"
	}
	return branch
}
