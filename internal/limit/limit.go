// Package limit caps how many files a pass opens and asks before opening
// fewer than were found.
package limit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/branchtabs/internal/config"
)

// Decision is the outcome of a limit check.
type Decision struct {
	// Proceed is false when the pass must stop with no side effects.
	Proceed bool

	// Limit is the number of files to open.
	Limit int
}

// Offer is a request to persist a new maximum.
type Offer struct {
	Accepted bool
	Scope    config.Scope
	Max      int
}

// Prompter asks the user about capped opens.
type Prompter interface {
	// ConfirmCapped asks whether to open max of found files.
	ConfirmCapped(ctx context.Context, root string, found, max int) (bool, error)

	// OfferNewMaximum offers to store a new maximum.
	OfferNewMaximum(ctx context.Context, root string, found, max int) (Offer, error)
}

// SettingsWriter persists a new maximum.
type SettingsWriter interface {
	SetMaxFilesToOpen(ctx context.Context, scope config.Scope, root string, n int) error
}

// Gate applies the open-count maximum.
type Gate struct {
	prompter Prompter
	writer   SettingsWriter
	logger   *zap.Logger
}

// NewGate creates a gate. A nil writer disables persisting new maxima.
func NewGate(prompter Prompter, writer SettingsWriter, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{prompter: prompter, writer: writer, logger: logger}
}

// Check decides how many of found files to open given max. A max of zero
// or less is unlimited. Above the maximum the user confirms a capped open
// or cancels; independently a new maximum may be stored, which does not
// change this pass.
func (g *Gate) Check(ctx context.Context, root string, found, max int) Decision {
	if max <= 0 || found <= max {
		return Decision{Proceed: true, Limit: found}
	}

	logger := g.logger.With(zap.String("repo", root), zap.Int("found", found), zap.Int("max", max))

	g.offer(ctx, root, found, max, logger)

	ok, err := g.prompter.ConfirmCapped(ctx, root, found, max)
	if err != nil {
		logger.Warn("limit confirmation failed", zap.Error(err))
		return Decision{}
	}
	if !ok {
		logger.Info("capped open declined")
		return Decision{}
	}
	return Decision{Proceed: true, Limit: max}
}

func (g *Gate) offer(ctx context.Context, root string, found, max int, logger *zap.Logger) {
	if g.writer == nil {
		return
	}

	offer, err := g.prompter.OfferNewMaximum(ctx, root, found, max)
	if err != nil {
		logger.Warn("new maximum offer failed", zap.Error(err))
		return
	}
	if !offer.Accepted {
		return
	}

	if err := g.writer.SetMaxFilesToOpen(ctx, offer.Scope, root, offer.Max); err != nil {
		logger.Warn("cannot store new maximum",
			zap.Stringer("scope", offer.Scope),
			zap.Int("new_max", offer.Max),
			zap.Error(err))
		return
	}
	logger.Info("stored new maximum", zap.Stringer("scope", offer.Scope), zap.Int("new_max", offer.Max))
}
