package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/branchtabs/internal/changes"
)

// testRepo creates a temporary git repository with one commit on main.
func testRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q", "-b", "main")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")

	createFile(t, dir, "README.md", "# test\n")
	createFile(t, dir, "old.txt", "old\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")

	return dir
}

// createFile creates a file in the repo.
func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// gitCmd runs a git command in the repo.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s\n%s", strings.Join(args, " "), out)
	return string(out)
}

func openTestRepo(t *testing.T, dir string) *Repository {
	t.Helper()
	mgr := NewManager(ManagerConfig{})
	t.Cleanup(func() { _ = mgr.Close() })

	repo, err := mgr.Open(dir)
	require.NoError(t, err)
	return repo
}

func TestManagerOpen(t *testing.T) {
	dir := testRepo(t)
	repo := openTestRepo(t, dir)

	assert.Equal(t, dir, repo.Path())
	assert.Equal(t, filepath.Join(dir, ".git"), repo.GitDir())
}

func TestManagerOpenNotRepository(t *testing.T) {
	mgr := NewManager(ManagerConfig{})
	defer mgr.Close()

	_, err := mgr.Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestManagerDiscover(t *testing.T) {
	dir := testRepo(t)
	subdir := filepath.Join(dir, "src", "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0755))

	mgr := NewManager(ManagerConfig{})
	defer mgr.Close()

	repo, err := mgr.Discover(subdir)
	require.NoError(t, err)
	assert.Equal(t, dir, repo.Path())

	again, err := mgr.Open(dir)
	require.NoError(t, err)
	assert.Same(t, repo, again)
}

func TestManagerClosed(t *testing.T) {
	mgr := NewManager(ManagerConfig{})
	require.NoError(t, mgr.Close())
	require.NoError(t, mgr.Close())

	_, err := mgr.Open(t.TempDir())
	assert.ErrorIs(t, err, ErrManagerClosed)
	_, err = mgr.Discover(t.TempDir())
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestResolveGitDirWorktreeFile(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, ".git", "gitdir: ../real/.git/worktrees/wt\n")

	dir, err := resolveGitDir(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(filepath.Join(root, "../real/.git/worktrees/wt")), dir)
}

func TestResolveGitDirBadFile(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, ".git", "garbage")

	_, err := resolveGitDir(root)
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestVerifyRef(t *testing.T) {
	dir := testRepo(t)
	repo := openTestRepo(t, dir)
	ctx := context.Background()

	ok, err := repo.VerifyRef(ctx, "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyRef(ctx, "release/1.0")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.VerifyRef(ctx, "--all")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiffNameStatus(t *testing.T) {
	dir := testRepo(t)
	gitCmd(t, dir, "checkout", "-q", "-b", "feature-1")
	createFile(t, dir, "README.md", "# changed\n")
	createFile(t, dir, "docs/new.md", "new\n")
	gitCmd(t, dir, "rm", "-q", "old.txt")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "feature work")

	repo := openTestRepo(t, dir)
	files, err := repo.DiffNameStatus(context.Background(), "main")
	require.NoError(t, err)

	assert.ElementsMatch(t, []changes.ChangedFile{
		{Path: "README.md", Kind: changes.KindModified},
		{Path: "docs/new.md", Kind: changes.KindAdded},
	}, files)
}

func TestCheckIgnore(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, ".gitignore", "*.log\nbuild/\n")
	repo := openTestRepo(t, dir)
	ctx := context.Background()

	ignored, err := repo.CheckIgnore(ctx, []string{"app.log", "src/main.go", "build/out.bin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"app.log": true, "build/out.bin": true}, ignored)

	ignored, err = repo.CheckIgnore(ctx, []string{"src/main.go"})
	require.NoError(t, err, "exit status 1 means nothing ignored")
	assert.Empty(t, ignored)
}

func TestCheckIgnoreReportsTrackedFiles(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "dist/bundle.js", "bundle\n")
	gitCmd(t, dir, "add", "-f", "dist/bundle.js")
	gitCmd(t, dir, "commit", "-q", "-m", "add bundle")
	createFile(t, dir, ".gitignore", "dist/\n")
	gitCmd(t, dir, "add", ".gitignore")
	gitCmd(t, dir, "commit", "-q", "-m", "ignore dist")

	repo := openTestRepo(t, dir)
	ignored, err := repo.CheckIgnore(context.Background(), []string{"dist/bundle.js", "README.md"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"dist/bundle.js": true}, ignored)
}

func TestLatestAuthors(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "mine.go", "package x\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "mine")

	createFile(t, dir, "theirs.go", "package x\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "-c", "user.email=other@example.com", "-c", "user.name=Other", "commit", "-q", "-m", "theirs")

	repo := openTestRepo(t, dir)
	authors, err := repo.LatestAuthors(context.Background(), []string{"mine.go", "theirs.go", "never.go"})
	require.NoError(t, err)

	assert.Equal(t, "test@example.com", authors["mine.go"].Email)
	assert.Equal(t, "Test User", authors["mine.go"].Name)
	assert.Equal(t, "other@example.com", authors["theirs.go"].Email)
	assert.NotContains(t, authors, "never.go")
}

func TestIdentityAndBranch(t *testing.T) {
	dir := testRepo(t)
	repo := openTestRepo(t, dir)
	ctx := context.Background()

	me, err := repo.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, changes.Author{Email: "test@example.com", Name: "Test User"}, me)

	missing, err := repo.ConfigValue(ctx, "branchtabs.nothing")
	require.NoError(t, err)
	assert.Empty(t, missing)

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	upstream, err := repo.Upstream(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, upstream)
}

func TestReadHeadState(t *testing.T) {
	dir := testRepo(t)
	gitCmd(t, dir, "checkout", "-q", "-b", "feature-x")
	gitCmd(t, dir, "config", "branch.feature-x.remote", "origin")
	gitCmd(t, dir, "config", "branch.feature-x.merge", "refs/heads/feature-x")

	state, err := ReadHeadState(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature-x", state.Branch)
	assert.Equal(t, "origin/feature-x", state.Upstream)
	assert.False(t, state.Detached())

	gitCmd(t, dir, "checkout", "-q", "--detach")
	state, err = ReadHeadState(dir)
	require.NoError(t, err)
	assert.True(t, state.Detached())
}

func TestReadHeadStateLocalUpstream(t *testing.T) {
	dir := testRepo(t)
	gitCmd(t, dir, "branch", "team/x")
	gitCmd(t, dir, "checkout", "-q", "--track", "-b", "x", "team/x")

	state, err := ReadHeadState(dir)
	require.NoError(t, err)
	assert.Equal(t, "x", state.Branch)
	assert.Equal(t, "refs/heads/team/x", state.Upstream)

	repo := openTestRepo(t, dir)
	upstream, err := repo.Upstream(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, state.Upstream, upstream)

	fromRepo, err := repo.HeadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.Branch, fromRepo.Branch)
	assert.Equal(t, state.Upstream, fromRepo.Upstream)
}

func TestReadHeadStateNotRepository(t *testing.T) {
	_, err := ReadHeadState(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}
