// Package filter implements the ordered filter pipeline applied to the files
// changed on a branch before they are opened.
//
// Each stage is independent and idempotent: applying a stage to its own
// output returns that output unchanged. The pipeline runs the stages in
// order and stops as soon as one leaves nothing.
package filter

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/changes"
)

// Stage is one filter over a changed-file list.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string

	// Apply returns the subset of files that pass the stage, in input order.
	Apply(ctx context.Context, files []changes.ChangedFile) []changes.ChangedFile
}

// Pipeline is a fixed sequence of stages.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
}

// NewPipeline creates a pipeline running stages in the given order.
func NewPipeline(logger *zap.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run applies every stage in order, short-circuiting on an empty result.
func (p *Pipeline) Run(ctx context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	current := files
	for _, stage := range p.stages {
		if len(current) == 0 {
			return nil
		}
		if ctx.Err() != nil {
			p.logger.Debug("pipeline cancelled", zap.String("stage", stage.Name()))
			return nil
		}

		before := len(current)
		current = stage.Apply(ctx, current)
		p.logger.Debug("filter stage",
			zap.String("stage", stage.Name()),
			zap.Int("in", before),
			zap.Int("out", len(current)))
	}
	if len(current) == 0 {
		return nil
	}
	return current
}

// keep returns the files for which pred is true.
func keep(files []changes.ChangedFile, pred func(changes.ChangedFile) bool) []changes.ChangedFile {
	var out []changes.ChangedFile
	for _, f := range files {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}
