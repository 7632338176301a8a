package git

import "errors"

var (
	// ErrNonFastForward indicates the remote advanced and rejected a push.
	ErrNonFastForward = errors.New("push rejected: non-fast-forward")

	// ErrRebaseConflict indicates a rebase stopped on conflicts and was aborted.
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrGitNotFound indicates the git binary is not on PATH.
	ErrGitNotFound = errors.New("git binary not found")
)
