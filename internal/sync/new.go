package sync

import (
	gosync "sync"
	"time"

	"repo-sync-automation/internal/model"
	pkgLog "repo-sync-automation/pkg/log"
)

type coordinator struct {
	vcs     VCS
	hooks   []Hook
	opts    Options
	metrics *Metrics
	l       pkgLog.Logger
	now     func() time.Time

	// generated maps the paths post-sync hooks left dirty to their content
	// fingerprints. Only touched inside a run.
	generated map[string]string

	mu        gosync.Mutex
	requested uint64
	current   *run
	last      *run
	state     model.SyncState
}

// New creates a Coordinator. Hooks run in order after every reset.
func New(vcs VCS, hooks []Hook, opts Options, metrics *Metrics, l pkgLog.Logger) Coordinator {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &coordinator{
		vcs:     vcs,
		hooks:   hooks,
		opts:    opts.withDefaults(),
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
}
