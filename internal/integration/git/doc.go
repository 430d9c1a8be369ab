// Package git provides the version-control queries branchtabs depends on.
//
// All queries shell out to the git binary through a Runner so they can be
// replaced by fakes in tests. Every invocation runs with the working
// directory pinned to the repository root and with optional locks disabled,
// so queries never contend with a concurrent git operation on the index.
//
// # Architecture
//
//   - Runner: executes one git command (ExecRunner runs the real binary)
//   - Manager: discovers and caches repositories by root path
//   - Repository: the plumbing queries used by the resolution pipeline
//
// # Queries
//
//	repo, err := mgr.Discover("/path/to/project/src")
//	if err != nil {
//	    return err
//	}
//
//	ok, _ := repo.VerifyRef(ctx, "main")
//	files, _ := repo.DiffNameStatus(ctx, "main")
//	ignored, _ := repo.CheckIgnore(ctx, changes.Paths(files))
//	authors, _ := repo.LatestAuthors(ctx, changes.Paths(files))
//	me, _ := repo.Identity(ctx)
//
// # Head state
//
// ReadHeadState reads the checked-out branch and its upstream through go-git
// without starting a subprocess. It is cheap enough to call on every HEAD
// change notification.
package git
