package sync

import (
	"context"

	"repo-sync-automation/internal/model"
)

// Coordinator serializes sync runs against the local working tree.
type Coordinator interface {
	// Sync blocks until a sync run that started after the call completes.
	Sync(ctx context.Context) (model.Revision, error)
	// TriggerAsync requests a sync without waiting for it.
	TriggerAsync(reason string)
	// State returns a snapshot of the sync state.
	State() model.SyncState
}

// VCS is the version-control surface a sync run needs.
type VCS interface {
	IsRepository(ctx context.Context) bool
	Clone(ctx context.Context, branch string) error
	Fetch(ctx context.Context, remote, branch string) error
	ResetHard(ctx context.Context, remote, branch string) error
	HasChanges(ctx context.Context) (bool, error)
	DirtyFiles(ctx context.Context) (map[string]string, error)
	HasStagedChanges(ctx context.Context) (bool, error)
	Stash(ctx context.Context, message string) error
	Add(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, branch string) error
	Rebase(ctx context.Context, remote, branch string) error
	Head(ctx context.Context) (string, error)
	RemoteHead(ctx context.Context, remote, branch string) (string, error)
	EnsureIdentity(ctx context.Context, name, email string) error
}

// Hook runs after the working tree has been reset to the remote branch.
type Hook interface {
	Name() string
	Run(ctx context.Context) error
}
