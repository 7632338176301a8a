package sync

import (
	"fmt"
	"time"

	"repo-sync-automation/internal/model"
)

// LocalChangesPolicy decides what happens to uncommitted work before a reset.
type LocalChangesPolicy string

const (
	LocalChangesStash   LocalChangesPolicy = "stash"
	LocalChangesDiscard LocalChangesPolicy = "discard"
)

// ParseLocalChangesPolicy validates a configured policy. Empty means stash.
func ParseLocalChangesPolicy(s string) (LocalChangesPolicy, error) {
	switch LocalChangesPolicy(s) {
	case "", LocalChangesStash:
		return LocalChangesStash, nil
	case LocalChangesDiscard:
		return LocalChangesDiscard, nil
	default:
		return "", fmt.Errorf("unknown local changes policy %q", s)
	}
}

const (
	DefaultRemote        = "origin"
	DefaultFetchAttempts = 3
	DefaultFetchBackoff  = 2 * time.Second
	DefaultTimeout       = 2 * time.Minute
	DefaultGitUserName   = "Repo Sync Bot"
	DefaultGitUserEmail  = "repo-sync@users.noreply.github.com"

	commitTimeFormat = "2006-01-02 15:04:05"
)

// Options configures a Coordinator.
type Options struct {
	Remote        string
	Branch        string
	LocalChanges  LocalChangesPolicy
	FetchAttempts int
	FetchBackoff  time.Duration
	Timeout       time.Duration // bound for runs started by TriggerAsync
	AutoCommit    bool
	CommitPaths   []string
	GitUserName   string
	GitUserEmail  string
}

func (o Options) withDefaults() Options {
	if o.Remote == "" {
		o.Remote = DefaultRemote
	}
	if o.LocalChanges == "" {
		o.LocalChanges = LocalChangesStash
	}
	if o.FetchAttempts < 1 {
		o.FetchAttempts = DefaultFetchAttempts
	}
	if o.FetchBackoff <= 0 {
		o.FetchBackoff = DefaultFetchBackoff
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.GitUserName == "" {
		o.GitUserName = DefaultGitUserName
	}
	if o.GitUserEmail == "" {
		o.GitUserEmail = DefaultGitUserEmail
	}
	return o
}

// run is one execution of the sync steps. covers is the highest request
// sequence number the run satisfies.
type run struct {
	covers uint64
	done   chan struct{}
	rev    model.Revision
	err    error
}
