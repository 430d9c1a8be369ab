package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Writer persists setting changes to the workspace or user layer.
type Writer struct {
	paths Paths
}

// NewWriter creates a writer for paths.
func NewWriter(paths Paths) *Writer {
	return &Writer{paths: paths}
}

// SetMaxFilesToOpen stores a new maximum at scope. Workspace values are
// written into the repository's settings.json, keeping its other keys.
// User values are written into config.toml.
func (w *Writer) SetMaxFilesToOpen(ctx context.Context, scope Scope, root string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch scope {
	case ScopeWorkspace:
		if root == "" {
			return fmt.Errorf("%w: workspace scope needs a repository", ErrInvalidScope)
		}
		return w.setJSON(w.paths.WorkspaceFile(root), KeyMaxFilesToOpen, n)
	case ScopeUser:
		return w.setTOML(w.paths.UserFile(), KeyMaxFilesToOpen, n)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidScope, scope)
	}
}

func (w *Writer) setJSON(path, key string, value any) error {
	data, err := readOptional(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		data = []byte("{}")
	}

	data, err = sjson.SetBytes(data, key, value)
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return writeAtomic(path, pretty.Pretty(data))
}

func (w *Writer) setTOML(path, key string, value any) error {
	data, err := readOptional(path)
	if err != nil {
		return err
	}

	values := make(map[string]any)
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &values); err != nil {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	}
	values[key] = value

	out, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return writeAtomic(path, out)
}

// writeAtomic replaces path with data through a temporary file in the same
// directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
