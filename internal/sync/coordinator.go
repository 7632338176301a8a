package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/git"
	pkgLog "repo-sync-automation/pkg/log"
)

// Sync waits for the first run that starts after this call and returns its
// result. Concurrent callers are coalesced: while a run is active, later
// callers share one follow-up run.
func (c *coordinator) Sync(ctx context.Context) (model.Revision, error) {
	c.mu.Lock()
	c.requested++
	seq := c.requested

	for {
		if c.last != nil && c.last.covers >= seq {
			r := c.last
			c.mu.Unlock()
			return r.rev, r.err
		}

		if c.current == nil {
			r := &run{covers: c.requested, done: make(chan struct{})}
			c.current = r
			c.state.InProgress = true
			c.mu.Unlock()

			c.metrics.InProgress.Set(1)
			go c.execute(ctx, r)
			return c.wait(ctx, r)
		}

		r := c.current
		c.mu.Unlock()

		if r.covers >= seq {
			return c.wait(ctx, r)
		}

		select {
		case <-r.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		c.mu.Lock()
	}
}

func (c *coordinator) wait(ctx context.Context, r *run) (model.Revision, error) {
	select {
	case <-r.done:
		return r.rev, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TriggerAsync requests a sync bounded by Options.Timeout and logs the outcome.
// reason becomes the trace id of the request's log lines.
func (c *coordinator) TriggerAsync(reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(pkgLog.WithTraceID(context.Background(), reason), c.opts.Timeout)
		defer cancel()

		c.l.Infof(ctx, "sync: triggered by %s", reason)
		rev, err := c.Sync(ctx)
		if err != nil {
			c.l.Errorf(ctx, "sync: run triggered by %s failed: %v", reason, err)
			return
		}
		c.l.Infof(ctx, "sync: run triggered by %s finished at %s", reason, rev.Short())
	}()
}

func (c *coordinator) State() model.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// execute runs the sync steps detached from the caller's cancellation so that
// waiters sharing the run are not affected by one caller giving up.
func (c *coordinator) execute(parent context.Context, r *run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.Timeout)
	defer cancel()

	start := c.now()
	defer func() {
		if p := recover(); p != nil {
			c.l.Errorf(ctx, "sync: recovered panic: %v", p)
			r.rev, r.err = "", fmt.Errorf("%w: %v", ErrSyncPanicked, p)
		}
		c.finish(ctx, r, start)
	}()

	r.rev, r.err = c.runSteps(ctx)
}

func (c *coordinator) finish(ctx context.Context, r *run, start time.Time) {
	finished := c.now()

	c.mu.Lock()
	c.current = nil
	c.last = r
	c.state.InProgress = false
	c.state.Syncs++
	if r.err != nil {
		c.state.LastError = r.err.Error()
	} else {
		c.state.LastError = ""
		c.state.LastSyncedRevision = r.rev
		c.state.LastSyncAt = finished
	}
	c.mu.Unlock()

	c.metrics.InProgress.Set(0)
	c.metrics.Runs.WithLabelValues(resultLabel(r.err)).Inc()
	c.metrics.Duration.Observe(finished.Sub(start).Seconds())

	if r.err != nil {
		c.l.Warnf(ctx, "sync: run failed: %v", r.err)
	} else {
		c.l.Infof(ctx, "sync: working tree at %s", r.rev.Short())
	}
	close(r.done)
}

func (c *coordinator) runSteps(ctx context.Context) (model.Revision, error) {
	remote, branch := c.opts.Remote, c.opts.Branch

	if !c.vcs.IsRepository(ctx) {
		c.l.Infof(ctx, "sync: no repository in working tree, cloning %s", branch)
		if err := c.retry(ctx, "clone", func() error { return c.vcs.Clone(ctx, branch) }); err != nil {
			return "", err
		}
	}

	if c.opts.AutoCommit {
		if err := c.vcs.EnsureIdentity(ctx, c.opts.GitUserName, c.opts.GitUserEmail); err != nil {
			return "", fmt.Errorf("ensure identity: %w", err)
		}
	}

	hookOutputOnly, err := c.handleLocalChanges(ctx)
	if err != nil {
		return "", err
	}

	if err := c.retry(ctx, "fetch", func() error { return c.vcs.Fetch(ctx, remote, branch) }); err != nil {
		return "", err
	}

	if hookOutputOnly {
		if head, ok := c.upToDate(ctx); ok {
			c.l.Debugf(ctx, "sync: %s/%s unchanged and only hook output is dirty, nothing to do", remote, branch)
			return head, nil
		}
	}

	if err := c.vcs.ResetHard(ctx, remote, branch); err != nil {
		return "", fmt.Errorf("reset to %s/%s: %w", remote, branch, err)
	}

	c.runHooks(ctx)

	if c.opts.AutoCommit {
		if err := c.commitAndPush(ctx); err != nil {
			return "", err
		}
	}

	c.recordHookOutput(ctx)

	head, err := c.vcs.Head(ctx)
	if err != nil {
		return "", fmt.Errorf("read head: %w", err)
	}
	return model.Revision(head), nil
}

// handleLocalChanges applies the local changes policy. Changes that are exactly
// what the previous run's hooks left behind are not user work: they are neither
// stashed nor reported, and hookOutputOnly is true.
func (c *coordinator) handleLocalChanges(ctx context.Context) (hookOutputOnly bool, err error) {
	dirty, err := c.vcs.DirtyFiles(ctx)
	if err != nil {
		return false, fmt.Errorf("check local changes: %w", err)
	}
	if len(dirty) == 0 {
		return false, nil
	}
	if c.isHookOutput(dirty) {
		c.l.Debugf(ctx, "sync: %d dirty paths are output of post-sync hooks", len(dirty))
		return true, nil
	}

	switch c.opts.LocalChanges {
	case LocalChangesDiscard:
		c.l.Warnf(ctx, "sync: discarding uncommitted local changes in %d paths", len(dirty))
		return false, nil
	default:
		msg := fmt.Sprintf("auto-stash before sync %s", c.now().UTC().Format(time.RFC3339))
		if err := c.vcs.Stash(ctx, msg); err != nil {
			return false, fmt.Errorf("stash local changes: %w", err)
		}
		c.l.Infof(ctx, "sync: stashed local changes in %d paths (%s)", len(dirty), msg)
		return false, nil
	}
}

func (c *coordinator) isHookOutput(dirty map[string]string) bool {
	if len(c.generated) == 0 {
		return false
	}
	for path, fingerprint := range dirty {
		if c.generated[path] != fingerprint {
			return false
		}
	}
	return true
}

// recordHookOutput remembers what the hooks left dirty so the next run does not
// mistake it for local work.
func (c *coordinator) recordHookOutput(ctx context.Context) {
	dirty, err := c.vcs.DirtyFiles(ctx)
	if err != nil {
		c.l.Warnf(ctx, "sync: could not record hook output: %v", err)
		c.generated = nil
		return
	}
	c.generated = dirty
}

// upToDate reports whether HEAD already is the fetched remote branch head.
func (c *coordinator) upToDate(ctx context.Context) (model.Revision, bool) {
	head, err := c.vcs.Head(ctx)
	if err != nil {
		return "", false
	}
	remoteHead, err := c.vcs.RemoteHead(ctx, c.opts.Remote, c.opts.Branch)
	if err != nil || remoteHead != head {
		return "", false
	}
	return model.Revision(head), true
}

func (c *coordinator) runHooks(ctx context.Context) {
	for _, h := range c.hooks {
		if err := h.Run(ctx); err != nil {
			c.metrics.HookFailures.WithLabelValues(h.Name()).Inc()
			c.l.Warnf(ctx, "sync: post-sync hook %s failed: %v", h.Name(), err)
		}
	}
}

func (c *coordinator) commitAndPush(ctx context.Context) error {
	remote, branch := c.opts.Remote, c.opts.Branch

	dirty, err := c.vcs.HasChanges(ctx)
	if err != nil {
		return fmt.Errorf("check changes after hooks: %w", err)
	}
	if !dirty {
		return nil
	}

	if err := c.vcs.Add(ctx, c.opts.CommitPaths); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	staged, err := c.vcs.HasStagedChanges(ctx)
	if err != nil {
		return fmt.Errorf("check staged changes: %w", err)
	}
	if !staged {
		c.l.Debugf(ctx, "sync: no changes under commit paths %v, skipping commit", c.opts.CommitPaths)
		return nil
	}
	msg := fmt.Sprintf("Auto-update [%s]", c.now().UTC().Format(commitTimeFormat))
	if err := c.vcs.Commit(ctx, msg); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	err = c.vcs.Push(ctx, remote, branch)
	if err == nil {
		c.l.Infof(ctx, "sync: pushed %q", msg)
		return nil
	}
	if !errors.Is(err, git.ErrNonFastForward) {
		return fmt.Errorf("push: %w", err)
	}

	c.l.Warnf(ctx, "sync: push rejected, rebasing onto %s/%s", remote, branch)
	if err := c.retry(ctx, "fetch", func() error { return c.vcs.Fetch(ctx, remote, branch) }); err != nil {
		return err
	}
	if err := c.vcs.Rebase(ctx, remote, branch); err != nil {
		if errors.Is(err, git.ErrRebaseConflict) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("rebase: %w", err)
	}
	if err := c.vcs.Push(ctx, remote, branch); err != nil {
		if errors.Is(err, git.ErrNonFastForward) {
			return fmt.Errorf("%w: push rejected again after rebase", ErrConflict)
		}
		return fmt.Errorf("push after rebase: %w", err)
	}
	c.l.Infof(ctx, "sync: pushed %q after rebase", msg)
	return nil
}

// retry runs fn with exponential backoff up to FetchAttempts times.
// Exhaustion is reported as ErrRemoteUnreachable.
func (c *coordinator) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.FetchBackoff
	b.MaxInterval = 10 * c.opts.FetchBackoff
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return fn()
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.FetchAttempts-1)), ctx),
		func(err error, next time.Duration) {
			c.l.Warnf(ctx, "sync: %s attempt %d/%d failed, retrying in %s: %v", op, attempt, c.opts.FetchAttempts, next, err)
		})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%w: %s failed after %d attempts: %v", ErrRemoteUnreachable, op, attempt, err)
}
