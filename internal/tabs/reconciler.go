package tabs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/changes"
	"github.com/dshills/branchtabs/internal/tracking"
)

// PinPolicy selects which change kinds are pinned after opening.
type PinPolicy struct {
	Modified bool
	Added    bool
}

// For reports whether files of kind k are pinned.
func (p PinPolicy) For(k changes.Kind) bool {
	switch k {
	case changes.KindModified:
		return p.Modified
	case changes.KindAdded:
		return p.Added
	default:
		return false
	}
}

// Reconciler opens and closes documents on behalf of a repository,
// recording what it opened in the repository's tracking state.
type Reconciler struct {
	host   Host
	logger *zap.Logger
}

// NewReconciler creates a reconciler driving host.
func NewReconciler(host Host, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{host: host, logger: logger}
}

// CloseTracked closes the documents the system opened for a repository.
//
// With pinnedOnly, only tracked documents whose tab is pinned are closed and
// exactly those are untracked; unpinned ones stay open and tracked. Without
// it every tracked tab is closed and the set is cleared. Tracked documents
// that are no longer open in any tab are forgotten in both modes.
func (r *Reconciler) CloseTracked(ctx context.Context, state *tracking.State, pinnedOnly bool) error {
	tracked := state.Opened()
	if len(tracked) == 0 {
		return nil
	}

	groups, err := r.host.TabGroups(ctx)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}

	present := make(map[string]bool)
	var result *multierror.Error
	var closed []string

	for _, group := range groups {
		var targets []Tab
		for _, tab := range group.Tabs {
			if !state.IsTracked(tab.URI) {
				continue
			}
			present[tab.URI] = true
			if pinnedOnly && !tab.Pinned {
				continue
			}
			targets = append(targets, tab)
		}
		if len(targets) == 0 {
			continue
		}

		if err := r.host.CloseTabs(ctx, targets); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, tab := range targets {
			closed = append(closed, tab.URI)
		}
	}

	var gone []string
	for _, uri := range tracked {
		if !present[uri] {
			gone = append(gone, uri)
		}
	}

	if !pinnedOnly && result == nil {
		state.ClearOpened()
	} else {
		state.Untrack(closed...)
		state.Untrack(gone...)
	}

	r.logger.Debug("closed tracked documents",
		zap.String("repo", state.Key()),
		zap.Bool("pinned_only", pinnedOnly),
		zap.Int("closed", len(closed)),
		zap.Int("gone", len(gone)))

	return result.ErrorOrNil()
}

// CloseAll closes every tab in every group, regardless of who opened it,
// and clears the repository's tracked set.
func (r *Reconciler) CloseAll(ctx context.Context, state *tracking.State) error {
	groups, err := r.host.TabGroups(ctx)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}

	var result *multierror.Error
	for _, group := range groups {
		if len(group.Tabs) == 0 {
			continue
		}
		if err := r.host.CloseTabs(ctx, group.Tabs); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result == nil && state != nil {
		state.ClearOpened()
	}
	return result.ErrorOrNil()
}

// Open opens each file as a pinned-per-policy document and tracks it.
// A file that fails to open is logged and skipped. Documents that already
// had a tab the system does not track belong to the user: they are shown
// but neither tracked nor pinned. It returns the URIs of the documents
// shown.
func (r *Reconciler) Open(ctx context.Context, state *tracking.State, root string, files []changes.ChangedFile, pins PinPolicy) []string {
	var opened []string

	userOpen, err := r.untrackedTabs(ctx, state)
	if err != nil {
		r.logger.Warn("cannot list tabs before opening", zap.String("repo", state.Key()), zap.Error(err))
		return nil
	}

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		path := filepath.Join(root, filepath.FromSlash(file.Path))
		logger := r.logger.With(zap.String("file", file.Path), zap.Stringer("kind", file.Kind))

		doc, err := r.host.OpenDocument(ctx, path)
		if err != nil {
			logger.Warn("cannot open changed file", zap.Error(err))
			continue
		}

		owned := !userOpen[doc.URI]
		pin := owned && pins.For(file.Kind)
		if err := r.host.ShowDocument(ctx, doc, ShowOptions{Preview: false, Focus: pin}); err != nil {
			logger.Warn("cannot show changed file", zap.Error(err))
			continue
		}
		opened = append(opened, doc.URI)
		if !owned {
			logger.Debug("document already open by the user, not tracking")
			continue
		}
		state.Track(doc.URI)

		if pin {
			r.pin(ctx, doc, logger)
		}
	}

	if len(opened) == 0 {
		r.logger.Info("no changed files opened", zap.String("repo", state.Key()))
	} else {
		r.logger.Info("opened changed files", zap.String("repo", state.Key()), zap.Int("count", len(opened)))
	}
	return opened
}

// untrackedTabs returns the URIs shown in any tab that state does not track.
func (r *Reconciler) untrackedTabs(ctx context.Context, state *tracking.State) (map[string]bool, error) {
	groups, err := r.host.TabGroups(ctx)
	if err != nil {
		return nil, err
	}
	uris := make(map[string]bool)
	for _, group := range groups {
		for _, tab := range group.Tabs {
			if !state.IsTracked(tab.URI) {
				uris[tab.URI] = true
			}
		}
	}
	return uris, nil
}

func (r *Reconciler) pin(ctx context.Context, doc Document, logger *zap.Logger) {
	active, err := r.host.ActiveDocumentURI(ctx)
	if err != nil || active != doc.URI {
		logger.Warn("document is not active, cannot pin", zap.String("active", active), zap.Error(err))
		return
	}
	if err := r.host.PinActiveDocument(ctx); err != nil {
		logger.Warn("cannot pin document", zap.Error(err))
	}
}
