package main

import (
	"context"
	"fmt"

	"repo-sync-automation/internal/housekeeping"
	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/log"
)

type syncer interface {
	Sync(ctx context.Context) (model.Revision, error)
}

type todoStatus interface {
	Status() (housekeeping.TodoStatus, error)
}

// runOnce performs a single sync and reports what is next in the todo file.
// Only a failed sync is an error; an unreadable todo file is logged.
func runOnce(ctx context.Context, s syncer, todo todoStatus, l log.Logger) error {
	rev, err := s.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	l.Infof(ctx, "Synced to %s", rev.Short())

	status, err := todo.Status()
	switch {
	case err != nil:
		l.Warnf(ctx, "Could not read todo file: %v", err)
	case !status.Exists:
		l.Infof(ctx, "No todo file %s", status.File)
	case status.AllDone:
		l.Infof(ctx, "All %d items in %s are done", status.Stats.Total, status.File)
	default:
		l.Infof(ctx, "Next item in %s: %s", status.File, status.NextItem)
	}
	return nil
}
