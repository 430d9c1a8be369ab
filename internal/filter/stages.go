package filter

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/changes"
)

// KindStage keeps files whose change kind is enabled.
type KindStage struct {
	IncludeModified bool
	IncludeAdded    bool
}

// Name implements Stage.
func (KindStage) Name() string { return "kind" }

// Apply implements Stage.
func (s KindStage) Apply(_ context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	switch {
	case s.IncludeModified && s.IncludeAdded:
		return files
	case !s.IncludeModified && !s.IncludeAdded:
		return nil
	}
	return keep(files, func(f changes.ChangedFile) bool {
		switch f.Kind {
		case changes.KindModified:
			return s.IncludeModified
		case changes.KindAdded:
			return s.IncludeAdded
		}
		return false
	})
}

// DirectoryStage drops files whose repo-relative path matches a directory
// exclusion pattern, so "^docs/" excludes everything under docs.
type DirectoryStage struct {
	Patterns *PatternSet
}

// Name implements Stage.
func (DirectoryStage) Name() string { return "directory-exclusion" }

// Apply implements Stage.
func (s DirectoryStage) Apply(_ context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if s.Patterns.Len() == 0 {
		return files
	}
	return keep(files, func(f changes.ChangedFile) bool {
		return !s.Patterns.Match(f.Path)
	})
}

// PathStage drops files whose repo-relative path matches an exclusion pattern.
type PathStage struct {
	Patterns *PatternSet
}

// Name implements Stage.
func (PathStage) Name() string { return "path-exclusion" }

// Apply implements Stage.
func (s PathStage) Apply(_ context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if s.Patterns.Len() == 0 {
		return files
	}
	return keep(files, func(f changes.ChangedFile) bool {
		return !s.Patterns.Match(f.Path)
	})
}

// IgnoreChecker reports which paths the version-control system ignores.
type IgnoreChecker interface {
	CheckIgnore(ctx context.Context, paths []string) (map[string]bool, error)
}

// VCSIgnoreStage drops files matched by the repository's ignore rules.
// When the check fails the stage is inconclusive and drops nothing.
type VCSIgnoreStage struct {
	Checker IgnoreChecker
	Logger  *zap.Logger
}

// Name implements Stage.
func (VCSIgnoreStage) Name() string { return "vcs-ignore" }

// Apply implements Stage.
func (s VCSIgnoreStage) Apply(ctx context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if s.Checker == nil || len(files) == 0 {
		return files
	}

	ignored, err := s.Checker.CheckIgnore(ctx, changes.Paths(files))
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("ignore check failed, keeping all files", zap.Error(err))
		}
		return files
	}
	if len(ignored) == 0 {
		return files
	}
	return keep(files, func(f changes.ChangedFile) bool {
		return !ignored[f.Path]
	})
}

// WorkspaceIgnoreStage drops files the user excluded by hand.
type WorkspaceIgnoreStage struct {
	Ignored map[string]struct{}
}

// Name implements Stage.
func (WorkspaceIgnoreStage) Name() string { return "workspace-ignore" }

// Apply implements Stage.
func (s WorkspaceIgnoreStage) Apply(_ context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if len(s.Ignored) == 0 {
		return files
	}
	return keep(files, func(f changes.ChangedFile) bool {
		_, ignored := s.Ignored[f.Path]
		return !ignored
	})
}

// TextProbe reports whether a repo-relative path opens as a text document.
type TextProbe interface {
	IsText(ctx context.Context, relPath string) bool
}

// TextStage keeps files that open as text documents.
// It performs one open attempt per file and so runs after the cheap stages.
type TextStage struct {
	Probe TextProbe
}

// Name implements Stage.
func (TextStage) Name() string { return "text-only" }

// Apply implements Stage.
func (s TextStage) Apply(ctx context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if s.Probe == nil {
		return files
	}
	return keep(files, func(f changes.ChangedFile) bool {
		return s.Probe.IsText(ctx, f.Path)
	})
}

var (
	_ Stage = KindStage{}
	_ Stage = DirectoryStage{}
	_ Stage = PathStage{}
	_ Stage = VCSIgnoreStage{}
	_ Stage = WorkspaceIgnoreStage{}
	_ Stage = TextStage{}
)
