package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// HeadState is the checked-out branch of a working copy.
type HeadState struct {
	// Root is the repository root path.
	Root string

	// Branch is the short branch name; empty when HEAD is detached.
	Branch string

	// Upstream is the tracking reference, if configured: "origin/main" for
	// a remote branch, "refs/heads/team/x" for a local one.
	Upstream string
}

// Detached reports whether HEAD points at a commit rather than a branch.
func (s HeadState) Detached() bool {
	return s.Branch == ""
}

// ReadHeadState reads HEAD and the branch's tracking configuration.
func ReadHeadState(root string) (HeadState, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return HeadState{}, ErrNotRepository
		}
		return HeadState{}, fmt.Errorf("open %s: %w", root, err)
	}

	state := HeadState{Root: root}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return HeadState{}, fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return state, nil
	}
	state.Branch = head.Target().Short()

	cfg, err := repo.Config()
	if err != nil {
		return state, fmt.Errorf("read config: %w", err)
	}
	if b, ok := cfg.Branches[state.Branch]; ok && b.Merge != "" {
		switch b.Remote {
		case "":
		case ".":
			state.Upstream = b.Merge.String()
		default:
			state.Upstream = b.Remote + "/" + b.Merge.Short()
		}
	}

	return state, nil
}
