package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/config"
	"github.com/dshills/branchtabs/internal/limit"
	"github.com/dshills/branchtabs/internal/resolver"
	"github.com/dshills/branchtabs/internal/tabs"
	"github.com/dshills/branchtabs/internal/tracking"
	"github.com/dshills/branchtabs/internal/watcher"
)

// SettingsSource loads the settings of a repository.
type SettingsSource interface {
	Load(root string) config.Settings
}

// FileResolver computes the files to open for a branch.
type FileResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Result, error)
}

// Report summarizes one pass.
type Report struct {
	PassID  string
	Root    string
	Branch  string
	BaseRef string

	// Excluded is set when the branch is excluded and nothing was resolved.
	Excluded bool

	// Disabled is set when settings turn automatic opening off.
	Disabled bool

	// Declined is set when the limit gate cancelled the pass.
	Declined bool

	Found  int
	Opened []string
}

// Coordinator runs a pass for each branch change: settings, resolution,
// limit gate, then closing old tabs and opening new ones.
type Coordinator struct {
	store    *tracking.Store
	settings SettingsSource
	resolver FileResolver
	gate     *limit.Gate
	tabs     *tabs.Reconciler
	logger   *zap.Logger
	now      func() time.Time
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Store      *tracking.Store
	Settings   SettingsSource
	Resolver   FileResolver
	Gate       *limit.Gate
	Reconciler *tabs.Reconciler
	Logger     *zap.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    cfg.Store,
		settings: cfg.Settings,
		resolver: cfg.Resolver,
		gate:     cfg.Gate,
		tabs:     cfg.Reconciler,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleBranchChange implements watcher.Handler.
func (c *Coordinator) HandleBranchChange(ctx context.Context, change watcher.BranchChange) error {
	_, err := c.Run(ctx, change)
	return err
}

// Run performs a pass and reports what it did.
func (c *Coordinator) Run(ctx context.Context, change watcher.BranchChange) (Report, error) {
	report := Report{
		PassID: uuid.NewString(),
		Root:   change.Root,
		Branch: change.Branch,
	}
	logger := c.logger.With(
		zap.String("pass", report.PassID),
		zap.String("repo", change.Root),
		zap.String("branch", change.Branch))

	s := c.settings.Load(change.Root)
	state := c.store.Get(change.Root)

	if !s.Enabled {
		logger.Debug("automatic opening disabled")
		report.Disabled = true
		return report, nil
	}

	if s.IsExcludedBranch(change.Branch) {
		report.Excluded = true
		logger.Info("branch excluded")
		if s.CloseOnExcludedBranch {
			if err := c.tabs.CloseTracked(ctx, state, false); err != nil {
				logger.Warn("closing tracked documents failed", zap.Error(err))
			}
		}
		return report, nil
	}

	res, err := c.resolver.Resolve(ctx, resolver.Request{
		Root:     change.Root,
		Branch:   change.Branch,
		Upstream: change.Upstream,
		Settings: s,
	})
	if err != nil {
		return report, err
	}
	report.BaseRef = res.BaseRef
	report.Found = len(res.Files)

	decision := c.gate.Check(ctx, change.Root, len(res.Files), s.MaxFilesToOpen)
	if !decision.Proceed {
		report.Declined = true
		return report, nil
	}

	if err := c.tabs.CloseTracked(ctx, state, s.ClosePinnedOnly); err != nil {
		logger.Warn("closing tracked documents failed", zap.Error(err))
	}
	if s.CloseAllTabs {
		if err := c.tabs.CloseAll(ctx, state); err != nil {
			logger.Warn("closing all documents failed", zap.Error(err))
		}
	}

	files := res.Files
	if decision.Limit < len(files) {
		files = files[:decision.Limit]
	}
	report.Opened = c.tabs.Open(ctx, state, change.Root, files, tabs.PinPolicy{
		Modified: s.PinModified,
		Added:    s.PinAdded,
	})
	state.RecordPass(c.now())

	logger.Info("pass complete",
		zap.String("base", res.BaseRef),
		zap.Int("changed", res.Changed),
		zap.Int("found", report.Found),
		zap.Int("opened", len(report.Opened)))
	return report, nil
}
