// Package ownership narrows a changed-file set to the files whose most
// recent change was authored by the current user.
package ownership

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/changes"
)

// History answers the two repository questions the filter needs.
type History interface {
	// Identity returns the current user's configured email and name.
	Identity(ctx context.Context) (changes.Author, error)

	// LatestAuthors returns the newest author per path.
	LatestAuthors(ctx context.Context, paths []string) (map[string]changes.Author, error)
}

// Filter keeps files last touched by the current identity.
type Filter struct {
	history History
	logger  *zap.Logger
}

// New creates a filter over history.
func New(history History, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{history: history, logger: logger}
}

// Apply returns the files whose latest author matches the current identity.
//
// The filter fails closed: if the identity cannot be determined or history
// cannot be read, no file survives.
func (f *Filter) Apply(ctx context.Context, files []changes.ChangedFile) []changes.ChangedFile {
	if len(files) == 0 {
		return nil
	}

	me, err := f.history.Identity(ctx)
	if err != nil {
		f.logger.Warn("cannot read user identity, ownership unknown", zap.Error(err))
		return nil
	}
	if me.IsZero() {
		f.logger.Warn("no user.email or user.name configured, ownership unknown")
		return nil
	}

	authors, err := f.history.LatestAuthors(ctx, changes.Paths(files))
	if err != nil {
		f.logger.Warn("cannot read history, ownership unknown", zap.Error(err))
		return nil
	}

	return Keep(files, authors, me)
}

// Keep returns the files whose recorded author matches me.
// Files without a recorded author never match.
func Keep(files []changes.ChangedFile, authors map[string]changes.Author, me changes.Author) []changes.ChangedFile {
	var kept []changes.ChangedFile
	for _, file := range files {
		author, ok := authors[file.Path]
		if ok && me.Matches(author) {
			kept = append(kept, file)
		}
	}
	return kept
}
