package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/branchtabs/internal/changes"
)

// fakeRunner returns canned output keyed by the first git argument.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []Command
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) ([]byte, error) {
	f.calls = append(f.calls, cmd)
	key := cmd.Args[0]
	return []byte(f.outputs[key]), f.errs[key]
}

func TestParseAuthorLog(t *testing.T) {
	output := "\x01a@x.com\x02Ann\n\nsrc/a.go\x00src/b.go\x00" +
		"\x00\x01b@x.com\x02Bob\n\nsrc/a.go\x00src/c.go\x00"

	got := parseAuthorLog(output, []string{"src/a.go", "src/c.go", "src/missing.go"})

	assert.Equal(t, map[string]changes.Author{
		"src/a.go": {Email: "a@x.com", Name: "Ann"},
		"src/c.go": {Email: "b@x.com", Name: "Bob"},
	}, got)
}

func TestParseAuthorLog_StopsWhenComplete(t *testing.T) {
	output := "\x01a@x.com\x02Ann\nonly.go\x00\x01b@x.com\x02Bob\nonly.go\x00"

	got := parseAuthorLog(output, []string{"only.go"})

	assert.Equal(t, "a@x.com", got["only.go"].Email)
}

func TestParseAuthorLog_IgnoresPathsBeforeAuthor(t *testing.T) {
	got := parseAuthorLog("stray.go\x00", []string{"stray.go"})
	assert.Empty(t, got)
}

func TestLatestAuthors_Empty(t *testing.T) {
	runner := &fakeRunner{}
	repo := &Repository{path: "/repo", runner: runner}

	got, err := repo.LatestAuthors(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, runner.calls)
}

func TestLatestAuthors_Args(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"log": "\x01a@x.com\x02Ann\na.go\x00"}}
	repo := &Repository{path: "/repo", runner: runner}

	got, err := repo.LatestAuthors(context.Background(), []string{"a.go"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", got["a.go"].Name)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/repo", runner.calls[0].Dir)
	assert.Equal(t, []string{"HEAD", "--", "a.go"}, runner.calls[0].Args[len(runner.calls[0].Args)-3:])
}

func TestCheckIgnore_Failure(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"check-ignore": &ExitError{Args: []string{"check-ignore"}, Code: 128}}}
	repo := &Repository{path: "/repo", runner: runner}

	_, err := repo.CheckIgnore(context.Background(), []string{"a.go"})
	require.Error(t, err)
	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 128, code)
}

func TestCheckIgnore_StdinIsNULDelimited(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"check-ignore": "b.log\x00"}}
	repo := &Repository{path: "/repo", runner: runner}

	got, err := repo.CheckIgnore(context.Background(), []string{"a.go", "b.log"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b.log": true}, got)
	assert.Equal(t, "a.go\x00b.log\x00", string(runner.calls[0].Stdin))
	assert.Equal(t, []string{"check-ignore", "--no-index", "-z", "--stdin"}, runner.calls[0].Args)
}

func TestHeadState_FallsBackToCLI(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"symbolic-ref": "feature-1\n",
		"rev-parse":    "refs/remotes/origin/feature-1\n",
	}}
	repo := &Repository{path: filepath.Join(t.TempDir(), "unreadable"), runner: runner}

	state, err := repo.HeadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feature-1", state.Branch)
	assert.Equal(t, "origin/feature-1", state.Upstream)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"rev-parse", "--symbolic-full-name", "feature-1@{upstream}"}, runner.calls[1].Args)
}

func TestHeadState_BothReadersFail(t *testing.T) {
	boom := errors.New("exec: git not found")
	runner := &fakeRunner{errs: map[string]error{"symbolic-ref": boom}}
	repo := &Repository{path: filepath.Join(t.TempDir(), "unreadable"), runner: runner}

	_, err := repo.HeadState(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestVerifyRef_RunnerFailure(t *testing.T) {
	boom := errors.New("exec: git not found")
	repo := &Repository{path: "/repo", runner: &fakeRunner{errs: map[string]error{"rev-parse": boom}}}

	ok, err := repo.VerifyRef(context.Background(), "main")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestExitErrorMessage(t *testing.T) {
	err := &ExitError{Args: []string{"diff", "x"}, Code: 128, Stderr: "fatal: bad revision"}
	assert.Equal(t, "git diff x: exit status 128: fatal: bad revision", err.Error())

	_, ok := ExitCode(errors.New("plain"))
	assert.False(t, ok)
}
