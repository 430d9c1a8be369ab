package config

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Setting keys, shared by every layer.
const (
	KeyExcludedBranches      = "excludedBranches"
	KeyBaseBranch            = "baseBranch"
	KeyIncludeModified       = "includeModified"
	KeyIncludeAdded          = "includeAdded"
	KeyPinModified           = "pinModified"
	KeyPinAdded              = "pinAdded"
	KeyExcludePaths          = "excludePaths"
	KeyExcludeDirectories    = "excludeDirectories"
	KeyTextFilesOnly         = "textFilesOnly"
	KeyMaxFilesToOpen        = "maxFilesToOpen"
	KeyClosePinnedOnly       = "closePinnedOnly"
	KeyCloseAllTabs          = "closeAllTabs"
	KeyCloseOnExcludedBranch = "closeOnExcludedBranch"
	KeyOnlyOwnChanges        = "onlyOwnChanges"
	KeyEnabled               = "enabled"
)

// Keys lists every setting key.
var Keys = []string{
	KeyExcludedBranches,
	KeyBaseBranch,
	KeyIncludeModified,
	KeyIncludeAdded,
	KeyPinModified,
	KeyPinAdded,
	KeyExcludePaths,
	KeyExcludeDirectories,
	KeyTextFilesOnly,
	KeyMaxFilesToOpen,
	KeyClosePinnedOnly,
	KeyCloseAllTabs,
	KeyCloseOnExcludedBranch,
	KeyOnlyOwnChanges,
	KeyEnabled,
}

// Settings is the configuration snapshot for one resolution pass.
// It is a value type: copies are independent.
type Settings struct {
	// ExcludedBranches are branch names (or path.Match globs) on which
	// nothing is opened.
	ExcludedBranches []string

	// BaseBranch overrides the base reference when it exists.
	BaseBranch string

	IncludeModified bool
	IncludeAdded    bool
	PinModified     bool
	PinAdded        bool

	// ExcludePaths and ExcludeDirectories are regex patterns, bare or
	// in /pattern/flags form.
	ExcludePaths       []string
	ExcludeDirectories []string

	// TextFilesOnly drops files the host cannot open as text.
	TextFilesOnly bool

	// MaxFilesToOpen caps the open count; zero or less is unlimited.
	MaxFilesToOpen int

	ClosePinnedOnly       bool
	CloseAllTabs          bool
	CloseOnExcludedBranch bool

	// OnlyOwnChanges keeps files last touched by the configured identity.
	OnlyOwnChanges bool

	// Enabled turns automatic opening on for the repository.
	Enabled bool
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ExcludedBranches: []string{"main", "master"},
		IncludeModified:  true,
		IncludeAdded:     true,
		PinModified:      false,
		PinAdded:         false,
		TextFilesOnly:    true,
		MaxFilesToOpen:   20,
		Enabled:          true,
	}
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	c := s
	c.ExcludedBranches = append([]string(nil), s.ExcludedBranches...)
	c.ExcludePaths = append([]string(nil), s.ExcludePaths...)
	c.ExcludeDirectories = append([]string(nil), s.ExcludeDirectories...)
	return c
}

// IsExcludedBranch reports whether branch matches an excluded entry,
// either exactly or as a glob.
func (s Settings) IsExcludedBranch(branch string) bool {
	if branch == "" {
		return false
	}
	for _, entry := range s.ExcludedBranches {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == branch {
			return true
		}
		if ok, err := path.Match(entry, branch); err == nil && ok {
			return true
		}
	}
	return false
}

// Set applies one setting value. Numbers may be any integer or float type
// as produced by the TOML, JSON and environment decoders; lists must hold
// strings.
func (s *Settings) Set(key string, value any) error {
	switch key {
	case KeyExcludedBranches:
		return assign(&s.ExcludedBranches, toStrings, value)
	case KeyBaseBranch:
		return assign(&s.BaseBranch, toString, value)
	case KeyIncludeModified:
		return assign(&s.IncludeModified, toBool, value)
	case KeyIncludeAdded:
		return assign(&s.IncludeAdded, toBool, value)
	case KeyPinModified:
		return assign(&s.PinModified, toBool, value)
	case KeyPinAdded:
		return assign(&s.PinAdded, toBool, value)
	case KeyExcludePaths:
		return assign(&s.ExcludePaths, toStrings, value)
	case KeyExcludeDirectories:
		return assign(&s.ExcludeDirectories, toStrings, value)
	case KeyTextFilesOnly:
		return assign(&s.TextFilesOnly, toBool, value)
	case KeyMaxFilesToOpen:
		return assign(&s.MaxFilesToOpen, toInt, value)
	case KeyClosePinnedOnly:
		return assign(&s.ClosePinnedOnly, toBool, value)
	case KeyCloseAllTabs:
		return assign(&s.CloseAllTabs, toBool, value)
	case KeyCloseOnExcludedBranch:
		return assign(&s.CloseOnExcludedBranch, toBool, value)
	case KeyOnlyOwnChanges:
		return assign(&s.OnlyOwnChanges, toBool, value)
	case KeyEnabled:
		return assign(&s.Enabled, toBool, value)
	default:
		return ErrUnknownSetting
	}
}

// assign stores the converted value; dst is untouched on error.
func assign[T any](dst *T, conv func(any) (T, error), v any) error {
	x, err := conv(v)
	if err != nil {
		return err
	}
	*dst = x
	return nil
}

func toBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected bool, got %T", ErrTypeMismatch, v)
	}
	return b, nil
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	default:
		return "", fmt.Errorf("%w: expected string, got %T", ErrTypeMismatch, v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%w: expected integer, got %v", ErrTypeMismatch, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrTypeMismatch, v)
	}
}

func toStrings(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string list, got %T element", ErrTypeMismatch, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(list) == "" {
			return nil, nil
		}
		return []string{list}, nil
	default:
		return nil, fmt.Errorf("%w: expected string list, got %T", ErrTypeMismatch, v)
	}
}
