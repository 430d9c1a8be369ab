package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// globalArgs precede every git invocation.
// Optional locks are skipped so read-only queries never fail or block while
// another git process holds the index lock.
var globalArgs = []string{"--no-optional-locks", "-c", "core.quotePath=false"}

// Command is a single git invocation.
type Command struct {
	// Dir is the working directory, normally the repository root.
	Dir string

	// Args are the git arguments (e.g. "diff", "--name-status").
	Args []string

	// Stdin is fed to the process when non-nil.
	Stdin []byte
}

// Runner executes git commands.
//
// Run returns the standard output. A process that exits non-zero yields an
// *ExitError together with whatever it wrote to stdout, so callers can treat
// documented exit codes as results rather than failures.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs the git binary.
type ExecRunner struct {
	// Binary is the git executable. Defaults to "git" on PATH.
	Binary string
}

// Run executes the command.
func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	args := make([]string, 0, len(globalArgs)+len(c.Args))
	args = append(args, globalArgs...)
	args = append(args, c.Args...)

	cmd := exec.CommandContext(ctx, binary, args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = append(os.Environ(), "GIT_OPTIONAL_LOCKS=0", "GIT_TERMINAL_PROMPT=0")
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), &ExitError{
				Args:   c.Args,
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return nil, fmt.Errorf("git %s: %w", strings.Join(c.Args, " "), err)
	}

	return stdout.Bytes(), nil
}

var _ Runner = ExecRunner{}
