package sync

import "errors"

var (
	// ErrRemoteUnreachable is returned when fetch or clone keeps failing after all retries.
	ErrRemoteUnreachable = errors.New("remote unreachable")

	// ErrConflict is returned when local automation commits cannot be pushed
	// because the remote diverged and a rebase did not resolve it.
	ErrConflict = errors.New("sync conflict")

	// ErrSyncPanicked wraps a panic recovered inside a sync run.
	ErrSyncPanicked = errors.New("sync run panicked")
)
