package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ignoreFile is the on-disk form of the ignore list.
type ignoreFile struct {
	Repositories map[string][]string `yaml:"repositories"`
}

// IgnoreStore persists the repo-relative paths the user excluded from
// automatic opening, per repository root.
type IgnoreStore struct {
	mu   sync.Mutex
	path string

	// Normalize maps a repository root to its key. Defaults to the cleaned
	// absolute path.
	Normalize func(string) string
}

// NewIgnoreStore creates a store backed by the YAML file at path.
func NewIgnoreStore(path string) *IgnoreStore {
	return &IgnoreStore{path: path}
}

// Path returns the backing file path.
func (s *IgnoreStore) Path() string {
	return s.path
}

func (s *IgnoreStore) key(root string) string {
	if s.Normalize != nil {
		return s.Normalize(root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Clean(root)
}

func (s *IgnoreStore) read() (ignoreFile, error) {
	var f ignoreFile
	data, err := readOptional(s.path)
	if err != nil {
		return f, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return f, &ParseError{Path: s.path, Message: err.Error(), Err: err}
		}
	}
	if f.Repositories == nil {
		f.Repositories = make(map[string][]string)
	}
	return f, nil
}

func (s *IgnoreStore) write(f ignoreFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}
	return writeAtomic(s.path, data)
}

// List returns the ignored paths of a repository, sorted.
func (s *IgnoreStore) List(root string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	paths := append([]string(nil), f.Repositories[s.key(root)]...)
	sort.Strings(paths)
	return paths, nil
}

// Set materializes the ignored paths of a repository as a set.
func (s *IgnoreStore) Set(root string) (map[string]struct{}, error) {
	paths, err := s.List(root)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set, nil
}

// Add ignores paths in a repository. Paths are stored slash separated.
func (s *IgnoreStore) Add(root string, paths ...string) error {
	return s.update(root, func(set map[string]struct{}) {
		for _, p := range paths {
			if p = cleanRel(p); p != "" {
				set[p] = struct{}{}
			}
		}
	})
}

// Remove stops ignoring paths in a repository.
func (s *IgnoreStore) Remove(root string, paths ...string) error {
	return s.update(root, func(set map[string]struct{}) {
		for _, p := range paths {
			delete(set, cleanRel(p))
		}
	})
}

func (s *IgnoreStore) update(root string, fn func(map[string]struct{})) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	key := s.key(root)
	set := make(map[string]struct{})
	for _, p := range f.Repositories[key] {
		set[p] = struct{}{}
	}
	fn(set)

	if len(set) == 0 {
		delete(f.Repositories, key)
	} else {
		paths := make([]string, 0, len(set))
		for p := range set {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		f.Repositories[key] = paths
	}
	return s.write(f)
}

func cleanRel(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")
	if p == "" || p == "." {
		return ""
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))), "./")
}
