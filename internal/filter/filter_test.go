package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/branchtabs/internal/changes"
)

func mod(p string) changes.ChangedFile { return changes.ChangedFile{Path: p, Kind: changes.KindModified} }
func add(p string) changes.ChangedFile { return changes.ChangedFile{Path: p, Kind: changes.KindAdded} }

type fakeChecker struct {
	ignored map[string]bool
	err     error
	calls   int
}

func (f *fakeChecker) CheckIgnore(_ context.Context, paths []string) (map[string]bool, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, p := range paths {
		if f.ignored[p] {
			out[p] = true
		}
	}
	return out, nil
}

type fakeProbe struct {
	text  map[string]bool
	asked []string
}

func (f *fakeProbe) IsText(_ context.Context, p string) bool {
	f.asked = append(f.asked, p)
	return f.text[p]
}

func TestKindStage(t *testing.T) {
	files := []changes.ChangedFile{mod("a.go"), add("b.go"), mod("c.go")}
	ctx := context.Background()

	assert.Equal(t, files, KindStage{IncludeModified: true, IncludeAdded: true}.Apply(ctx, files))
	assert.Equal(t, []changes.ChangedFile{mod("a.go"), mod("c.go")}, KindStage{IncludeModified: true}.Apply(ctx, files))
	assert.Equal(t, []changes.ChangedFile{add("b.go")}, KindStage{IncludeAdded: true}.Apply(ctx, files))
	assert.Empty(t, KindStage{}.Apply(ctx, files))
}

func TestDirectoryStage(t *testing.T) {
	files := []changes.ChangedFile{mod("README.md"), mod("vendor/lib/x.go"), mod("src/gen/out.go"), mod("src/main.go")}
	stage := DirectoryStage{Patterns: CompilePatterns([]string{"^vendor", "/gen/"}, zaptest.NewLogger(t))}

	got := stage.Apply(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("README.md"), mod("src/main.go")}, got)
}

func TestDirectoryStage_MatchesFilesDirectlyInside(t *testing.T) {
	stage := DirectoryStage{Patterns: CompilePatterns([]string{"^docs/", "node_modules/"}, nil)}
	files := []changes.ChangedFile{mod("docs/new.md"), mod("node_modules/x.js"), mod("web/node_modules/y.js"), mod("src/a.ts"), mod("README.md")}

	got := stage.Apply(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("src/a.ts"), mod("README.md")}, got)
	assert.Equal(t, got, stage.Apply(context.Background(), got))
}

func TestPathStage(t *testing.T) {
	files := []changes.ChangedFile{mod("go.sum"), mod("web/package-lock.json"), mod("src/App.TSX"), mod("src/util.go")}
	stage := PathStage{Patterns: CompilePatterns([]string{`\.sum$`, `/\.tsx$/i`, "(unclosed", "lock\\.json$"}, zaptest.NewLogger(t))}

	got := stage.Apply(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("src/util.go")}, got)
}

func TestVCSIgnoreStage(t *testing.T) {
	files := []changes.ChangedFile{mod("a.go"), add("dist/app.js"), mod("b.log")}
	checker := &fakeChecker{ignored: map[string]bool{"dist/app.js": true, "b.log": true}}

	got := VCSIgnoreStage{Checker: checker, Logger: zaptest.NewLogger(t)}.Apply(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("a.go")}, got)
	assert.Equal(t, 1, checker.calls, "paths are checked in one batch")
}

func TestVCSIgnoreStage_FailureKeepsEverything(t *testing.T) {
	files := []changes.ChangedFile{mod("a.go"), mod("b.go")}
	checker := &fakeChecker{err: errors.New("git: command not found")}

	got := VCSIgnoreStage{Checker: checker, Logger: zaptest.NewLogger(t)}.Apply(context.Background(), files)

	assert.Equal(t, files, got)
}

func TestWorkspaceIgnoreStage(t *testing.T) {
	files := []changes.ChangedFile{mod("a.go"), mod("b.go")}
	stage := WorkspaceIgnoreStage{Ignored: map[string]struct{}{"b.go": {}}}

	assert.Equal(t, []changes.ChangedFile{mod("a.go")}, stage.Apply(context.Background(), files))
	assert.Equal(t, files, WorkspaceIgnoreStage{}.Apply(context.Background(), files))
}

func TestTextStage(t *testing.T) {
	files := []changes.ChangedFile{mod("a.go"), add("logo.png")}
	probe := &fakeProbe{text: map[string]bool{"a.go": true}}

	got := TextStage{Probe: probe}.Apply(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("a.go")}, got)
}

func TestStagesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	files := []changes.ChangedFile{mod("a.go"), add("vendor/b.go"), mod("c.lock"), add("d.png"), mod("e.log"), mod("f.go")}
	stages := []Stage{
		KindStage{IncludeModified: true},
		DirectoryStage{Patterns: CompilePatterns([]string{"vendor"}, nil)},
		PathStage{Patterns: CompilePatterns([]string{`\.lock$`}, nil)},
		VCSIgnoreStage{Checker: &fakeChecker{ignored: map[string]bool{"e.log": true}}},
		WorkspaceIgnoreStage{Ignored: map[string]struct{}{"f.go": {}}},
		TextStage{Probe: &fakeProbe{text: map[string]bool{"a.go": true, "f.go": true, "c.lock": true}}},
	}

	for _, stage := range stages {
		t.Run(stage.Name(), func(t *testing.T) {
			once := stage.Apply(ctx, files)
			twice := stage.Apply(ctx, once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestPipelineShortCircuits(t *testing.T) {
	checker := &fakeChecker{}
	probe := &fakeProbe{}
	p := Standard(Options{
		IncludeModified: false,
		IncludeAdded:    false,
		Ignore:          checker,
		TextOnly:        true,
		Probe:           probe,
	}, zaptest.NewLogger(t))

	got := p.Run(context.Background(), []changes.ChangedFile{mod("a.go")})

	assert.Empty(t, got)
	assert.Zero(t, checker.calls)
	assert.Empty(t, probe.asked)
}

func TestStandardOrder(t *testing.T) {
	p := Standard(Options{TextOnly: true, Probe: &fakeProbe{}}, nil)
	assert.Equal(t, []string{
		"kind", "directory-exclusion", "path-exclusion", "vcs-ignore", "workspace-ignore", "text-only",
	}, p.Stages())

	p = Standard(Options{}, nil)
	assert.NotContains(t, p.Stages(), "text-only")
}

func TestPipelineEndToEnd(t *testing.T) {
	probe := &fakeProbe{text: map[string]bool{"src/a.ts": true, "docs/new.md": true}}
	p := Standard(Options{
		IncludeModified: true,
		IncludeAdded:    true,
		Ignore:          &fakeChecker{},
		TextOnly:        true,
		Probe:           probe,
	}, zaptest.NewLogger(t))

	files := changes.ParseStatusOutput("M\tsrc/a.ts\nA\tdocs/new.md\nD\told.txt\n")
	got := p.Run(context.Background(), files)

	assert.Equal(t, []changes.ChangedFile{mod("src/a.ts"), add("docs/new.md")}, got)
	assert.Equal(t, []string{"src/a.ts", "docs/new.md"}, probe.asked)
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Standard(Options{IncludeModified: true}, nil).Run(ctx, []changes.ChangedFile{mod("a.go")})
	assert.Empty(t, got)
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		raw     string
		value   string
		match   bool
		invalid bool
	}{
		{raw: `\.min\.js$`, value: "dist/app.min.js", match: true},
		{raw: `/README/i`, value: "docs/readme.md", match: true},
		{raw: `/README/`, value: "docs/readme.md", match: false},
		{raw: `/^src/gi`, value: "SRC/x.go", match: true},
		{raw: `/a.b/s`, value: "a\nb", match: true},
		{raw: `/x/q`, value: "a/x/q", match: true},
		{raw: `/(/i`, invalid: true},
		{raw: `[`, invalid: true},
		{raw: `  `, invalid: true},
		{raw: `/usr/local`, value: "/usr/local/bin", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			re, err := ParsePattern(tt.raw)
			if tt.invalid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.match, re.MatchString(tt.value))
		})
	}
}

func TestCompilePatternsSkipsInvalid(t *testing.T) {
	set := CompilePatterns([]string{"(", "ok", "", "/[/i"}, zaptest.NewLogger(t))
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Match("look"))

	var empty *PatternSet
	assert.False(t, empty.Match("x"))
	assert.Zero(t, empty.Len())
}
