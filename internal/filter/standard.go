package filter

import "go.uber.org/zap"

// Options configures the standard pipeline.
type Options struct {
	IncludeModified    bool
	IncludeAdded       bool
	ExcludeDirectories []string
	ExcludePaths       []string

	// Ignore checks the version-control ignore rules; nil skips the stage.
	Ignore IgnoreChecker

	// WorkspaceIgnored is the user-curated per-repository ignore set.
	WorkspaceIgnored map[string]struct{}

	// TextOnly enables the text-detection stage using Probe.
	TextOnly bool
	Probe    TextProbe
}

// Standard builds the pipeline in its fixed order: kind, directory
// exclusion, path exclusion, VCS ignore, workspace ignore, text detection.
func Standard(opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	stages := []Stage{
		KindStage{IncludeModified: opts.IncludeModified, IncludeAdded: opts.IncludeAdded},
		DirectoryStage{Patterns: CompilePatterns(opts.ExcludeDirectories, logger)},
		PathStage{Patterns: CompilePatterns(opts.ExcludePaths, logger)},
		VCSIgnoreStage{Checker: opts.Ignore, Logger: logger},
		WorkspaceIgnoreStage{Ignored: opts.WorkspaceIgnored},
	}
	if opts.TextOnly && opts.Probe != nil {
		stages = append(stages, TextStage{Probe: opts.Probe})
	}

	return NewPipeline(logger, stages...)
}
