package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/integration/git"
	"github.com/dshills/branchtabs/internal/tracking"
)

// Notifier receives head snapshots.
type Notifier interface {
	Prime(snap tracking.Snapshot) error
	Notify(snap tracking.Snapshot) error
}

// HeadReader reads the checked-out branch of a working copy.
type HeadReader func(root string) (git.HeadState, error)

// HeadRepository names the directories of one watched working copy.
type HeadRepository struct {
	// Root is the working copy root.
	Root string

	// GitDir holds HEAD.
	GitDir string

	// CommonDir holds refs/heads and packed-refs; defaults to GitDir.
	CommonDir string
}

// HeadWatcher watches HEAD, refs/heads and packed-refs of repositories with
// fsnotify and reports each change as a snapshot.
type HeadWatcher struct {
	fsw      *fsnotify.Watcher
	notifier Notifier
	read     HeadReader
	logger   *zap.Logger

	mu     sync.Mutex
	dirs   map[string][]string // watched directory -> roots
	closed bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// HeadOption configures a HeadWatcher.
type HeadOption func(*HeadWatcher)

// WithHeadReader replaces git.ReadHeadState.
func WithHeadReader(read HeadReader) HeadOption {
	return func(h *HeadWatcher) {
		h.read = read
	}
}

// NewHeadWatcher creates a watcher reporting to notifier.
func NewHeadWatcher(notifier Notifier, logger *zap.Logger, opts ...HeadOption) (*HeadWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	h := &HeadWatcher{
		fsw:      fsw,
		notifier: notifier,
		read:     git.ReadHeadState,
		logger:   logger,
		dirs:     make(map[string][]string),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.wg.Add(1)
	go h.processLoop()

	return h, nil
}

// Add starts watching a repository and primes the notifier with its
// current branch.
func (h *HeadWatcher) Add(repo HeadRepository) error {
	if repo.CommonDir == "" {
		repo.CommonDir = repo.GitDir
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	dirs := []string{repo.GitDir}
	if repo.CommonDir != repo.GitDir {
		dirs = append(dirs, repo.CommonDir)
	}
	dirs = append(dirs, refDirs(filepath.Join(repo.CommonDir, "refs", "heads"))...)
	for _, dir := range dirs {
		if err := h.watchLocked(dir, repo.Root); err != nil {
			h.mu.Unlock()
			return err
		}
	}
	h.mu.Unlock()

	state, err := h.read(repo.Root)
	if err != nil {
		h.logger.Warn("cannot read head", zap.String("repo", repo.Root), zap.Error(err))
		return nil
	}
	return h.notifier.Prime(snapshotOf(state))
}

func (h *HeadWatcher) watchLocked(dir, root string) error {
	for _, r := range h.dirs[dir] {
		if r == root {
			return nil
		}
	}
	if len(h.dirs[dir]) == 0 {
		if err := h.fsw.Add(dir); err != nil {
			return err
		}
	}
	h.dirs[dir] = append(h.dirs[dir], root)
	return nil
}

// refDirs returns dir and every directory below it.
func refDirs(dir string) []string {
	var dirs []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	return dirs
}

// WatchedDirs returns the number of watched directories.
func (h *HeadWatcher) WatchedDirs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dirs)
}

func (h *HeadWatcher) processLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.closeCh:
			return

		case event, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			h.handle(event)

		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			h.logger.Warn("head watch error", zap.Error(err))
		}
	}
}

func (h *HeadWatcher) handle(event fsnotify.Event) {
	dir := filepath.Dir(event.Name)

	h.mu.Lock()
	roots := append([]string(nil), h.dirs[dir]...)
	if event.Has(fsnotify.Create) && isDir(event.Name) && strings.Contains(filepath.ToSlash(event.Name), "/refs/heads/") {
		for _, root := range roots {
			if err := h.watchLocked(event.Name, root); err != nil {
				h.logger.Debug("cannot watch ref directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
	}
	h.mu.Unlock()

	if len(roots) == 0 || !relevant(event) {
		return
	}

	for _, root := range roots {
		state, err := h.read(root)
		if err != nil {
			h.logger.Debug("cannot read head", zap.String("repo", root), zap.Error(err))
			continue
		}
		if err := h.notifier.Notify(snapshotOf(state)); err != nil && !errors.Is(err, ErrClosed) {
			h.logger.Warn("notify failed", zap.String("repo", root), zap.Error(err))
		}
	}
}

// relevant reports whether an event can change the checked-out branch or
// its upstream.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, ".lock") {
		return false
	}
	switch base {
	case "HEAD", "packed-refs", "config":
		return true
	}
	return strings.Contains(filepath.ToSlash(event.Name), "/refs/heads/")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func snapshotOf(state git.HeadState) tracking.Snapshot {
	return tracking.Snapshot{Root: state.Root, Branch: state.Branch, Upstream: state.Upstream}
}

// Close stops watching. It is safe to call more than once.
func (h *HeadWatcher) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.closeCh)
	h.mu.Unlock()

	h.wg.Wait()
	return h.fsw.Close()
}
