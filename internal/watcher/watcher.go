// Package watcher debounces head changes per repository and runs one
// resolution pass at a time for each.
//
// Every repository has a single worker goroutine. Notify arms the
// repository's branch timer; when it elapses the worker compares the
// latest reported branch with the last recorded one and calls the handler
// on a change. A notification arriving while the handler runs re-arms the
// timer, and the wake it produces is consumed after the pass returns.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/tracking"
)

// ErrClosed is returned by operations on a closed watcher.
var ErrClosed = errors.New("watcher is closed")

// Default delays.
const (
	DefaultBranchDelay  = 200 * time.Millisecond
	DefaultRefreshDelay = 750 * time.Millisecond
)

// BranchChange describes a settled branch switch.
type BranchChange struct {
	Root     string
	Previous string
	Branch   string
	Upstream string
}

// Handler runs a resolution pass for a branch change.
type Handler interface {
	HandleBranchChange(ctx context.Context, change BranchChange) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, change BranchChange) error

// HandleBranchChange calls f.
func (f HandlerFunc) HandleBranchChange(ctx context.Context, change BranchChange) error {
	return f(ctx, change)
}

// RefreshFunc is called after head activity settles, whether or not the
// branch changed.
type RefreshFunc func(ctx context.Context, snap tracking.Snapshot)

// Options configures a RepositoryWatcher.
type Options struct {
	// BranchDelay is the branch debounce window. Defaults to 200ms.
	BranchDelay time.Duration

	// RefreshDelay is the refresh debounce window. Defaults to 750ms.
	RefreshDelay time.Duration

	// Refresh is optional.
	Refresh RefreshFunc

	Logger *zap.Logger
}

// RepositoryWatcher turns head snapshots into debounced branch changes.
type RepositoryWatcher struct {
	store   *tracking.Store
	handler Handler
	opts    Options
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	wg      sync.WaitGroup
}

type worker struct {
	state *tracking.State
	wake  chan struct{}
}

// signal wakes the worker without blocking; pending wakes coalesce.
func (wk *worker) signal() {
	select {
	case wk.wake <- struct{}{}:
	default:
	}
}

// New creates a watcher over store that calls handler on branch changes.
func New(store *tracking.Store, handler Handler, opts Options) *RepositoryWatcher {
	if opts.BranchDelay <= 0 {
		opts.BranchDelay = DefaultBranchDelay
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RepositoryWatcher{
		store:   store,
		handler: handler,
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[string]*worker),
	}
}

// Prime records snap's branch as the repository's current branch without
// running a pass.
func (w *RepositoryWatcher) Prime(snap tracking.Snapshot) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	st := w.store.Get(snap.Root)
	st.ObserveBranch(snap.Branch)
	return nil
}

// Notify reports the current head of a repository. Notifications for
// disabled repositories are dropped.
func (w *RepositoryWatcher) Notify(snap tracking.Snapshot) error {
	st := w.store.Get(snap.Root)
	if !st.Enabled() {
		w.logger.Debug("repository disabled, dropping notification", zap.String("repo", st.Key()))
		return nil
	}

	wk, err := w.worker(st)
	if err != nil {
		return err
	}

	st.SetPending(snap)
	st.ArmTimer(w.opts.BranchDelay, wk.signal)
	if w.opts.Refresh != nil {
		st.ArmRefresh(w.opts.RefreshDelay, func() { w.refresh(snap) })
	}
	return nil
}

// worker returns the repository's worker, starting it on first use.
func (w *RepositoryWatcher) worker(st *tracking.State) (*worker, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if wk, ok := w.workers[st.Key()]; ok {
		return wk, nil
	}

	wk := &worker{state: st, wake: make(chan struct{}, 1)}
	w.workers[st.Key()] = wk

	w.wg.Add(1)
	go w.run(wk)
	return wk, nil
}

func (w *RepositoryWatcher) run(wk *worker) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-wk.wake:
			w.process(wk.state)
		}
	}
}

// process compares the pending branch with the recorded one and runs the
// handler on a change.
func (w *RepositoryWatcher) process(st *tracking.State) {
	snap, ok := st.Pending()
	if !ok || !st.Enabled() {
		return
	}

	previous := st.LastBranch()
	if !st.ObserveBranch(snap.Branch) {
		return
	}

	change := BranchChange{
		Root:     snap.Root,
		Previous: previous,
		Branch:   snap.Branch,
		Upstream: snap.Upstream,
	}
	logger := w.logger.With(zap.String("repo", st.Key()), zap.String("from", previous), zap.String("to", snap.Branch))
	logger.Info("branch changed")

	if err := w.call(change); err != nil {
		logger.Error("branch change handling failed", zap.Error(err))
	}
}

// call runs the handler, converting a panic into an error.
func (w *RepositoryWatcher) call(change BranchChange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return w.handler.HandleBranchChange(w.ctx, change)
}

func (w *RepositoryWatcher) refresh(snap tracking.Snapshot) {
	if w.ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("refresh panic", zap.String("repo", snap.Root), zap.Any("panic", r))
		}
	}()
	w.opts.Refresh(w.ctx, snap)
}

// Close cancels pending timers and the context of running passes, then
// waits for every worker to exit. It is safe to call more than once.
func (w *RepositoryWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	workers := make([]*worker, 0, len(w.workers))
	for _, wk := range w.workers {
		workers = append(workers, wk)
	}
	w.mu.Unlock()

	for _, wk := range workers {
		wk.state.StopTimers()
	}
	w.cancel()
	w.wg.Wait()
	return nil
}
