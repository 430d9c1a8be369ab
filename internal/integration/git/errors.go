package git

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for git operations.
var (
	// ErrNotRepository indicates the path is not a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrRepositoryNotFound indicates no repository was found.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrManagerClosed indicates the manager has been closed.
	ErrManagerClosed = errors.New("manager closed")
)

// ExitError reports a git process that ran but exited with a non-zero status.
type ExitError struct {
	// Args are the git arguments, without the global options.
	Args []string

	// Code is the process exit code.
	Code int

	// Stderr is the trimmed standard error output.
	Stderr string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExitCode returns the exit code carried by err, if err is an ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
