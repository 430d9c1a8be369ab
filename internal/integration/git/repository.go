package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/branchtabs/internal/changes"
)

// Repository represents a git working copy.
type Repository struct {
	path   string
	gitDir string
	runner Runner
}

// openRepository opens an existing git repository.
func openRepository(path string, runner Runner) (*Repository, error) {
	gitDir, err := resolveGitDir(path)
	if err != nil {
		return nil, err
	}

	return &Repository{
		path:   path,
		gitDir: gitDir,
		runner: runner,
	}, nil
}

// resolveGitDir returns the git directory of the working copy at root.
// .git can be a directory or a file (for worktrees and submodules).
func resolveGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotRepository
		}
		return "", fmt.Errorf("stat .git: %w", err)
	}

	if info.IsDir() {
		return dotGit, nil
	}

	content, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("read .git file: %w", err)
	}
	content = bytes.TrimSpace(content)
	if !bytes.HasPrefix(content, []byte("gitdir:")) {
		return "", ErrNotRepository
	}

	dir := strings.TrimSpace(string(content[len("gitdir:"):]))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir), nil
}

// discoverRepository finds the repository root from any path within it.
func discoverRepository(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}

	current := absPath
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrRepositoryNotFound
		}
		current = parent
	}
}

// Path returns the repository root path.
func (r *Repository) Path() string {
	return r.path
}

// GitDir returns the git directory (".git" or the worktree's gitdir).
func (r *Repository) GitDir() string {
	return r.gitDir
}

// CommonDir returns the directory holding shared refs. For a linked
// worktree it is named by the gitdir's "commondir" file; otherwise it is
// the gitdir itself.
func (r *Repository) CommonDir() string {
	content, err := os.ReadFile(filepath.Join(r.gitDir, "commondir"))
	if err != nil {
		return r.gitDir
	}
	dir := strings.TrimSpace(string(content))
	if dir == "" {
		return r.gitDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.gitDir, dir)
	}
	return filepath.Clean(dir)
}

// git executes a git command in the repository.
func (r *Repository) git(ctx context.Context, args ...string) (string, error) {
	out, err := r.runner.Run(ctx, Command{Dir: r.path, Args: args})
	return string(out), err
}

// VerifyRef reports whether ref names an existing commit.
// A missing or malformed ref is reported as false with a nil error; only a
// failure to run git at all is returned as an error.
func (r *Repository) VerifyRef(ctx context.Context, ref string) (bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "-") {
		return false, nil
	}

	_, err := r.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err == nil {
		return true, nil
	}
	if _, ok := ExitCode(err); ok {
		return false, nil
	}
	return false, err
}

// DiffNameStatus returns the files changed on HEAD since it diverged from base.
func (r *Repository) DiffNameStatus(ctx context.Context, base string) ([]changes.ChangedFile, error) {
	output, err := r.git(ctx, "diff", "--name-status", "-M", "--no-color", base+"...HEAD", "--")
	if err != nil {
		return nil, fmt.Errorf("diff %s...HEAD: %w", base, err)
	}
	return changes.ParseStatusOutput(output), nil
}

// ConfigValue returns the effective value of a git config key.
// An unset key returns an empty string and a nil error.
func (r *Repository) ConfigValue(ctx context.Context, key string) (string, error) {
	output, err := r.git(ctx, "config", "--get", key)
	if err != nil {
		if code, ok := ExitCode(err); ok && code == 1 {
			return "", nil
		}
		return "", fmt.Errorf("config %s: %w", key, err)
	}
	return strings.TrimSpace(output), nil
}

// Identity returns the configured user.email and user.name.
func (r *Repository) Identity(ctx context.Context) (changes.Author, error) {
	email, err := r.ConfigValue(ctx, "user.email")
	if err != nil {
		return changes.Author{}, err
	}
	name, err := r.ConfigValue(ctx, "user.name")
	if err != nil {
		return changes.Author{}, err
	}
	return changes.Author{Email: email, Name: name}, nil
}

// CurrentBranch returns the current branch name.
// Returns empty string if in detached HEAD state.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.git(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		if code, ok := ExitCode(err); ok && code == 1 {
			return "", nil
		}
		return "", fmt.Errorf("current branch: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// Upstream returns branch's upstream, or "" if it has none. Remote
// upstreams are short ("origin/main"); local ones keep their full
// "refs/heads/" name so they cannot be mistaken for a remote form.
func (r *Repository) Upstream(ctx context.Context, branch string) (string, error) {
	if branch == "" {
		return "", nil
	}
	output, err := r.git(ctx, "rev-parse", "--symbolic-full-name", branch+"@{upstream}")
	if err != nil {
		if _, ok := ExitCode(err); ok {
			return "", nil
		}
		return "", fmt.Errorf("upstream of %s: %w", branch, err)
	}
	return strings.TrimPrefix(strings.TrimSpace(output), "refs/remotes/"), nil
}

// HeadState reads the checked-out branch with go-git and falls back to the
// git CLI when go-git cannot read the repository.
func (r *Repository) HeadState(ctx context.Context) (HeadState, error) {
	state, err := ReadHeadState(r.path)
	if err == nil {
		return state, nil
	}

	branch, cliErr := r.CurrentBranch(ctx)
	if cliErr != nil {
		return HeadState{}, fmt.Errorf("%w; %w", err, cliErr)
	}
	upstream, cliErr := r.Upstream(ctx, branch)
	if cliErr != nil {
		return HeadState{}, fmt.Errorf("%w; %w", err, cliErr)
	}
	return HeadState{Root: r.path, Branch: branch, Upstream: upstream}, nil
}
