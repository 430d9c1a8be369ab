package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Layer is one configuration source. Load returns nil, nil when the source
// does not exist.
type Layer interface {
	Name() string
	Load(root string) (map[string]any, error)
}

// Loader merges the layers of settings for a repository.
type Loader struct {
	layers []Layer
	logger *zap.Logger
}

// NewLoader creates a loader with the standard layers: user TOML,
// workspace JSON and environment.
func NewLoader(paths Paths, logger *zap.Logger) *Loader {
	return NewLoaderWithLayers(logger,
		TOMLLayer{Path: paths.UserFile()},
		WorkspaceLayer{Paths: paths},
		NewEnvLayer(EnvPrefix),
	)
}

// NewLoaderWithLayers creates a loader over the given layers, lowest
// priority first.
func NewLoaderWithLayers(logger *zap.Logger, layers ...Layer) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{layers: layers, logger: logger}
}

// Load returns the settings for root. A layer that fails to read or parse
// is logged and skipped, as is any single value of the wrong type.
func (l *Loader) Load(root string) Settings {
	s := Defaults()

	for _, layer := range l.layers {
		values, err := layer.Load(root)
		if err != nil {
			l.logger.Warn("skipping configuration layer",
				zap.String("layer", layer.Name()),
				zap.Error(err))
			continue
		}

		for _, err := range apply(&s, layer.Name(), values) {
			l.logger.Warn("skipping setting", zap.Error(err))
		}
	}

	return s
}

func apply(s *Settings, source string, values map[string]any) []error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		err := s.Set(key, values[key])
		if errors.Is(err, ErrUnknownSetting) {
			continue
		}
		if err != nil {
			errs = append(errs, &SettingError{Source: source, Key: key, Err: err})
		}
	}
	return errs
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}

// TOMLLayer reads the user configuration file.
type TOMLLayer struct {
	Path string
}

// Name implements Layer.
func (TOMLLayer) Name() string { return "user" }

// Load implements Layer. The root is not used.
func (t TOMLLayer) Load(string) (map[string]any, error) {
	data, err := readOptional(t.Path)
	if err != nil || data == nil {
		return nil, err
	}

	var values map[string]any
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, &ParseError{Path: t.Path, Message: err.Error(), Err: err}
	}
	return values, nil
}

// WorkspaceLayer reads a repository's workspace settings JSON.
type WorkspaceLayer struct {
	Paths Paths
}

// Name implements Layer.
func (WorkspaceLayer) Name() string { return "workspace" }

// Load implements Layer.
func (w WorkspaceLayer) Load(root string) (map[string]any, error) {
	if root == "" {
		return nil, nil
	}
	path := w.Paths.WorkspaceFile(root)
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Message: "invalid JSON"}
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, &ParseError{Path: path, Message: "top level value must be an object"}
	}

	values := make(map[string]any)
	for _, key := range Keys {
		if r := doc.Get(key); r.Exists() && r.Type != gjson.Null {
			values[key] = r.Value()
		}
	}
	return values, nil
}
