package trigger

import (
	"context"

	"repo-sync-automation/internal/model"
)

// Syncer is the part of the sync coordinator triggers use.
type Syncer interface {
	TriggerAsync(reason string)
	State() model.SyncState
}

// HeadSource reports the commit a remote branch points to.
type HeadSource interface {
	BranchHead(ctx context.Context, owner, repo, branch string) (string, error)
}
