package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scope selects where a persisted setting is written.
type Scope int

const (
	// ScopeWorkspace writes to the repository's workspace settings.
	ScopeWorkspace Scope = iota
	// ScopeUser writes to the user configuration file.
	ScopeUser
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeWorkspace:
		return "workspace"
	case ScopeUser:
		return "user"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope parses "workspace" or "user".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "workspace":
		return ScopeWorkspace, nil
	case "user":
		return ScopeUser, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// AppName names the configuration directories.
const AppName = "branchtabs"

// Paths locates the configuration files.
type Paths struct {
	// UserDir holds config.toml and ignored.yaml.
	UserDir string

	// WorkspaceDir is the directory under a repository root holding
	// settings.json.
	WorkspaceDir string
}

// DefaultPaths returns the standard locations: the user directory under
// os.UserConfigDir ($XDG_CONFIG_HOME on Linux) and ".branchtabs" in each
// repository.
func DefaultPaths() Paths {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return Paths{
		UserDir:      filepath.Join(dir, AppName),
		WorkspaceDir: "." + AppName,
	}
}

// UserFile returns the user TOML path.
func (p Paths) UserFile() string {
	return filepath.Join(p.UserDir, "config.toml")
}

// IgnoreFile returns the ignore list path.
func (p Paths) IgnoreFile() string {
	return filepath.Join(p.UserDir, "ignored.yaml")
}

// WorkspaceFile returns the workspace JSON path for a repository root.
func (p Paths) WorkspaceFile(root string) string {
	return filepath.Join(root, p.WorkspaceDir, "settings.json")
}
