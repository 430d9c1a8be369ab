package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/changes"
	"github.com/dshills/branchtabs/internal/config"
	"github.com/dshills/branchtabs/internal/integration/git"
	"github.com/dshills/branchtabs/internal/limit"
	"github.com/dshills/branchtabs/internal/resolver"
	"github.com/dshills/branchtabs/internal/tabs"
	"github.com/dshills/branchtabs/internal/tracking"
	"github.com/dshills/branchtabs/internal/watcher"
)

// headReadTimeout bounds the git CLI fallback when reading HEAD.
const headReadTimeout = 5 * time.Second

// Options configures the application.
type Options struct {
	// Paths locates configuration files. Defaults to config.DefaultPaths.
	Paths *config.Paths

	Logger *zap.Logger

	// Host is the document host. Defaults to an in-memory Workbench.
	Host tabs.Host

	// Prompter answers limit prompts. Defaults to declining capped opens.
	Prompter limit.Prompter

	// Runner executes git. Defaults to git.ExecRunner.
	Runner git.Runner

	BranchDelay  time.Duration
	RefreshDelay time.Duration
}

// Application owns every long-lived component.
type Application struct {
	logger *zap.Logger

	git         *git.Manager
	store       *tracking.Store
	loader      *config.Loader
	ignores     *config.IgnoreStore
	host        tabs.Host
	resolver    *resolver.Resolver
	coordinator *Coordinator
	watcher     *watcher.RepositoryWatcher

	mu      sync.Mutex
	heads   *watcher.HeadWatcher
	running atomic.Bool
	closed  atomic.Bool
}

// New wires the components.
func New(opts Options) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	paths := config.DefaultPaths()
	if opts.Paths != nil {
		paths = *opts.Paths
	}
	host := opts.Host
	if host == nil {
		host = tabs.NewWorkbench()
	}
	prompter := opts.Prompter
	if prompter == nil {
		prompter = limit.Static{}
	}

	a := &Application{
		logger: logger,
		git:    git.NewManager(git.ManagerConfig{Runner: opts.Runner}),
		store:  tracking.NewStore(),
		loader: config.NewLoader(paths, logger.Named("config")),
		host:   host,
	}

	a.ignores = config.NewIgnoreStore(paths.IgnoreFile())
	a.ignores.Normalize = a.store.Normalize

	a.resolver = resolver.New(resolver.Config{
		Open:    resolver.ManagerOpener(a.git),
		Host:    host,
		Ignored: a.ignores,
		Logger:  logger.Named("resolver"),
	})

	a.coordinator = NewCoordinator(CoordinatorConfig{
		Store:      a.store,
		Settings:   a.loader,
		Resolver:   a.resolver,
		Gate:       limit.NewGate(prompter, config.NewWriter(paths), logger.Named("limit")),
		Reconciler: tabs.NewReconciler(host, logger.Named("tabs")),
		Logger:     logger.Named("coordinator"),
	})

	a.watcher = watcher.New(a.store, a.coordinator, watcher.Options{
		BranchDelay:  opts.BranchDelay,
		RefreshDelay: opts.RefreshDelay,
		Refresh:      a.refresh,
		Logger:       logger.Named("watcher"),
	})

	return a
}

// Store returns the tracking store.
func (a *Application) Store() *tracking.Store { return a.store }

// Host returns the document host.
func (a *Application) Host() tabs.Host { return a.host }

// Ignores returns the manual ignore store.
func (a *Application) Ignores() *config.IgnoreStore { return a.ignores }

// Coordinator returns the pass coordinator.
func (a *Application) Coordinator() *Coordinator { return a.coordinator }

// Watcher returns the repository watcher.
func (a *Application) Watcher() *watcher.RepositoryWatcher { return a.watcher }

// Discover opens the repository containing each path. Paths outside any
// repository are logged and skipped; duplicates are collapsed.
func (a *Application) Discover(paths []string) ([]*git.Repository, error) {
	seen := make(map[string]bool)
	var repos []*git.Repository

	for _, p := range paths {
		repo, err := a.git.Discover(p)
		if err != nil {
			a.logger.Warn("not a repository", zap.String("path", p), zap.Error(err))
			continue
		}
		key := a.store.Normalize(repo.Path())
		if seen[key] {
			continue
		}
		seen[key] = true
		repos = append(repos, repo)
	}

	if len(repos) == 0 {
		return nil, ErrNoRepositories
	}
	return repos, nil
}

// Watch watches the repositories containing paths until ctx is done.
func (a *Application) Watch(ctx context.Context, paths []string) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	repos, err := a.Discover(paths)
	if err != nil {
		return err
	}

	heads, err := watcher.NewHeadWatcher(a.watcher, a.logger.Named("head"), watcher.WithHeadReader(a.readHead))
	if err != nil {
		return &InitError{Component: "head watcher", Err: err}
	}
	a.mu.Lock()
	a.heads = heads
	a.mu.Unlock()

	watched := 0
	for _, repo := range repos {
		err := heads.Add(watcher.HeadRepository{
			Root:      repo.Path(),
			GitDir:    repo.GitDir(),
			CommonDir: repo.CommonDir(),
		})
		if err != nil {
			a.logger.Warn("cannot watch repository", zap.String("repo", repo.Path()), zap.Error(err))
			continue
		}
		watched++
		a.logger.Info("watching repository", zap.String("repo", repo.Path()))
	}
	if watched == 0 {
		return ErrNoRepositories
	}

	<-ctx.Done()
	return nil
}

// readHead reads the checked-out branch of root for the HEAD watcher.
func (a *Application) readHead(root string) (git.HeadState, error) {
	repo, err := a.git.Open(root)
	if err != nil {
		return git.HeadState{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), headReadTimeout)
	defer cancel()
	return repo.HeadState(ctx)
}

// ResolveReport is the outcome of a one-shot resolution.
type ResolveReport struct {
	Root     string
	Branch   string
	Upstream string
	Excluded bool
	Result   resolver.Result
}

// Resolve computes the files that would be opened for the repository
// containing path, without touching any tab.
func (a *Application) Resolve(ctx context.Context, path string) (ResolveReport, error) {
	repo, err := a.git.Discover(path)
	if err != nil {
		return ResolveReport{}, fmt.Errorf("%s: %w", path, err)
	}

	head, err := repo.HeadState(ctx)
	if err != nil {
		return ResolveReport{}, fmt.Errorf("%s: %w", repo.Path(), err)
	}

	report := ResolveReport{Root: repo.Path(), Branch: head.Branch, Upstream: head.Upstream}
	if head.Detached() {
		return report, nil
	}

	s := a.loader.Load(repo.Path())
	if s.IsExcludedBranch(head.Branch) {
		report.Excluded = true
		return report, nil
	}

	report.Result, err = a.resolver.Resolve(ctx, resolver.Request{
		Root:     repo.Path(),
		Branch:   head.Branch,
		Upstream: head.Upstream,
		Settings: s,
	})
	return report, err
}

// refresh logs the current changed set after head activity settles.
func (a *Application) refresh(ctx context.Context, snap tracking.Snapshot) {
	if snap.Branch == "" {
		return
	}
	s := a.loader.Load(snap.Root)
	if s.IsExcludedBranch(snap.Branch) {
		return
	}

	res, err := a.resolver.Resolve(ctx, resolver.Request{
		Root:     snap.Root,
		Branch:   snap.Branch,
		Upstream: snap.Upstream,
		Settings: s,
	})
	if err != nil {
		a.logger.Debug("refresh failed", zap.String("repo", snap.Root), zap.Error(err))
		return
	}
	a.logger.Info("changed files",
		zap.String("repo", snap.Root),
		zap.String("branch", snap.Branch),
		zap.String("base", res.BaseRef),
		zap.Strings("files", changes.Paths(res.Files)))
}

// Close stops watching and releases every component. It is safe to call
// more than once.
func (a *Application) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	var result *multierror.Error

	a.mu.Lock()
	heads := a.heads
	a.mu.Unlock()
	if heads != nil {
		if err := heads.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("head watcher: %w", err))
		}
	}
	if err := a.watcher.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("watcher: %w", err))
	}
	a.store.Close()
	if err := a.git.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("git: %w", err))
	}

	return result.ErrorOrNil()
}
