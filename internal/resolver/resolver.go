// Package resolver turns a branch change into the list of files to open:
// base reference, diff, ownership and the filter pipeline.
package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/baseref"
	"github.com/dshills/branchtabs/internal/changes"
	"github.com/dshills/branchtabs/internal/config"
	"github.com/dshills/branchtabs/internal/filter"
	"github.com/dshills/branchtabs/internal/integration/git"
	"github.com/dshills/branchtabs/internal/ownership"
	"github.com/dshills/branchtabs/internal/tabs"
)

// Repository is the version-control surface a resolution pass uses.
type Repository interface {
	baseref.RefVerifier
	ownership.History
	filter.IgnoreChecker
	DiffNameStatus(ctx context.Context, base string) ([]changes.ChangedFile, error)
}

// Opener returns the repository rooted at root.
type Opener func(root string) (Repository, error)

// ManagerOpener opens repositories through a git manager.
func ManagerOpener(m *git.Manager) Opener {
	return func(root string) (Repository, error) {
		repo, err := m.Open(root)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// IgnoreSource materializes the manual ignore set of a repository.
type IgnoreSource interface {
	Set(root string) (map[string]struct{}, error)
}

// Request describes one resolution pass.
type Request struct {
	Root     string
	Branch   string
	Upstream string
	Settings config.Settings
}

// Result is the outcome of a pass.
type Result struct {
	// BaseRef is the reference diffed against; empty when none resolved.
	BaseRef string

	// Changed is the number of files in the diff before filtering.
	Changed int

	// Files are the files that survived every filter, in diff order.
	Files []changes.ChangedFile
}

// Resolver computes the files to open for a branch.
type Resolver struct {
	open    Opener
	host    tabs.Host
	ignored IgnoreSource
	base    *baseref.Resolver
	logger  *zap.Logger
}

// Config configures a Resolver.
type Config struct {
	Open Opener

	// Host is probed by the text-detection stage.
	Host tabs.Host

	// Ignored supplies the manual ignore set; nil means none.
	Ignored IgnoreSource

	Logger *zap.Logger
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		open:    cfg.Open,
		host:    cfg.Host,
		ignored: cfg.Ignored,
		base:    baseref.New(logger.Named("baseref")),
		logger:  logger,
	}
}

// Resolve runs a pass. Only a repository that cannot be opened is an error;
// every other failure is logged and yields fewer (or no) files.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	repo, err := r.open(req.Root)
	if err != nil {
		return Result{}, fmt.Errorf("open repository %s: %w", req.Root, err)
	}

	logger := r.logger.With(zap.String("repo", req.Root), zap.String("branch", req.Branch))
	s := req.Settings

	base, ok := r.base.Resolve(ctx, repo, baseref.Input{
		Override: s.BaseBranch,
		Branch:   req.Branch,
		Upstream: req.Upstream,
	})
	if !ok {
		logger.Info("no base reference found")
		return Result{}, nil
	}

	files, err := repo.DiffNameStatus(ctx, base)
	if err != nil {
		logger.Warn("diff failed", zap.String("base", base), zap.Error(err))
		return Result{BaseRef: base}, nil
	}
	result := Result{BaseRef: base, Changed: len(files)}
	logger.Debug("diffed against base", zap.String("base", base), zap.Int("changed", len(files)))

	if s.OnlyOwnChanges && len(files) > 0 {
		files = ownership.New(repo, logger.Named("ownership")).Apply(ctx, files)
	}

	pipeline := filter.Standard(filter.Options{
		IncludeModified:    s.IncludeModified,
		IncludeAdded:       s.IncludeAdded,
		ExcludeDirectories: s.ExcludeDirectories,
		ExcludePaths:       s.ExcludePaths,
		Ignore:             repo,
		WorkspaceIgnored:   r.ignoredSet(req.Root, logger),
		TextOnly:           s.TextFilesOnly && r.host != nil,
		Probe:              r.probe(req.Root),
	}, logger.Named("filter"))

	result.Files = pipeline.Run(ctx, files)
	return result, nil
}

func (r *Resolver) ignoredSet(root string, logger *zap.Logger) map[string]struct{} {
	if r.ignored == nil {
		return nil
	}
	set, err := r.ignored.Set(root)
	if err != nil {
		logger.Warn("cannot read ignore list", zap.Error(err))
		return nil
	}
	return set
}

func (r *Resolver) probe(root string) filter.TextProbe {
	if r.host == nil {
		return nil
	}
	return tabs.Probe{Host: r.host, Root: root}
}
