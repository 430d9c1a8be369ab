package git

import (
	"context"
	"fmt"
	"strings"
)

// CheckIgnore reports which of paths are excluded by the repository's
// ignore rules (.gitignore files, info/exclude, core.excludesFile).
//
// The paths are checked in one batched `git check-ignore --no-index -z
// --stdin` call. --no-index tests the rules against the path itself, so
// tracked files that a rule now covers are reported too.
// Exit status 0 (some ignored) and 1 (none ignored) are both results.
func (r *Repository) CheckIgnore(ctx context.Context, paths []string) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(paths) == 0 {
		return ignored, nil
	}

	var input strings.Builder
	for _, p := range paths {
		input.WriteString(p)
		input.WriteByte(0)
	}

	out, err := r.runner.Run(ctx, Command{
		Dir:   r.path,
		Args:  []string{"check-ignore", "--no-index", "-z", "--stdin"},
		Stdin: []byte(input.String()),
	})
	if err != nil {
		code, ok := ExitCode(err)
		if !ok || code != 1 {
			return nil, fmt.Errorf("check-ignore: %w", err)
		}
		return ignored, nil
	}

	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			ignored[p] = true
		}
	}
	return ignored, nil
}
