package git

import (
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Manager manages git repositories.
type Manager struct {
	mu     sync.RWMutex
	repos  map[string]*Repository
	closed atomic.Bool

	runner Runner
}

// ManagerConfig configures a git manager.
type ManagerConfig struct {
	// Runner executes git commands. Defaults to ExecRunner.
	Runner Runner
}

// NewManager creates a new git manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}

	return &Manager{
		repos:  make(map[string]*Repository),
		runner: cfg.Runner,
	}
}

// Open opens a repository at the given path.
// The path must be the repository root (containing .git).
func (m *Manager) Open(path string) (*Repository, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.repos[absPath]; ok {
		return repo, nil
	}

	repo, err := openRepository(absPath, m.runner)
	if err != nil {
		return nil, err
	}

	m.repos[absPath] = repo
	return repo, nil
}

// Discover finds and opens the repository containing the given path.
// It walks up the directory tree looking for a .git entry.
func (m *Manager) Discover(path string) (*Repository, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	root, err := discoverRepository(path)
	if err != nil {
		return nil, err
	}

	return m.Open(root)
}

// Close closes the manager and forgets all open repositories.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = make(map[string]*Repository)

	return nil
}
