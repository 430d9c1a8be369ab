// Package baseref chooses the reference a branch is diffed against.
package baseref

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Fallback branch names tried after the override and the upstream.
var fallbacks = []string{"main", "master"}

// RefVerifier reports whether a reference exists in a repository.
type RefVerifier interface {
	VerifyRef(ctx context.Context, ref string) (bool, error)
}

// Input describes the branch whose base is being resolved.
type Input struct {
	// Override is the configured base branch; empty means none.
	Override string

	// Branch is the checked-out branch.
	Branch string

	// Upstream is the branch's tracking reference, if any.
	Upstream string
}

// Resolver selects a base reference.
type Resolver struct {
	logger *zap.Logger
}

// New creates a resolver.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the first verified candidate in precedence order:
// the override, the upstream (unless it tracks the branch itself), main,
// then master. It reports false when none exists.
func (r *Resolver) Resolve(ctx context.Context, refs RefVerifier, in Input) (string, bool) {
	for _, candidate := range Candidates(in) {
		if r.exists(ctx, refs, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Candidates returns the references Resolve tries, in order.
func Candidates(in Input) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, ref)
	}

	add(in.Override)
	if in.Upstream != "" && !TracksSelf(in.Branch, in.Upstream) {
		add(in.Upstream)
	}
	for _, name := range fallbacks {
		add(name)
	}
	return out
}

// TracksSelf reports whether upstream is the branch itself or a
// remote-qualified form of it ("origin/feature-x" for "feature-x").
// Local upstreams arrive as "refs/heads/<name>" and only match the branch
// exactly, so "x" tracking the local branch "team/x" is not self-tracking.
func TracksSelf(branch, upstream string) bool {
	branch = strings.TrimPrefix(strings.TrimSpace(branch), "refs/heads/")
	upstream = strings.TrimSpace(upstream)
	if branch == "" || upstream == "" {
		return false
	}

	if strings.HasPrefix(upstream, "refs/heads/") {
		return strings.TrimPrefix(upstream, "refs/heads/") == branch
	}
	upstream = strings.TrimPrefix(upstream, "refs/remotes/")
	if upstream == branch {
		return true
	}
	_, rest, ok := strings.Cut(upstream, "/")
	return ok && rest == branch
}

func (r *Resolver) exists(ctx context.Context, refs RefVerifier, ref string) bool {
	ok, err := refs.VerifyRef(ctx, ref)
	if err != nil {
		r.logger.Warn("verify ref failed", zap.String("ref", ref), zap.Error(err))
		return false
	}
	return ok
}
