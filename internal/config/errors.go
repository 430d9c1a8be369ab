package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidScope indicates an unknown settings scope.
	ErrInvalidScope = errors.New("invalid settings scope")

	// ErrTypeMismatch indicates a setting value has the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownSetting indicates a key that is not a resolution setting.
	ErrUnknownSetting = errors.New("unknown setting")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// SettingError reports a setting whose value could not be applied.
type SettingError struct {
	Source string
	Key    string
	Err    error
}

// Error implements the error interface.
func (e *SettingError) Error() string {
	return fmt.Sprintf("%s: setting %q: %v", e.Source, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *SettingError) Unwrap() error {
	return e.Err
}
