package app

import "errors"

// Application errors.
var (
	// ErrAlreadyRunning indicates Watch was called on a running application.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoRepositories indicates none of the given paths is in a repository.
	ErrNoRepositories = errors.New("no repositories found")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
