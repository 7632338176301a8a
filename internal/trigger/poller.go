package trigger

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/robfig/cron.v2"

	"repo-sync-automation/internal/model"
	pkgLog "repo-sync-automation/pkg/log"
)

const pollTimeout = 30 * time.Second

// PollerConfig configures a Poller. Interval <= 0 disables scheduling.
type PollerConfig struct {
	Owner    string
	Repo     string
	Branch   string
	Interval time.Duration
}

// Poller periodically compares the remote branch head with the last synced
// revision and requests a sync when they differ.
type Poller struct {
	cfg    PollerConfig
	source HeadSource
	syncer Syncer
	cron   *cron.Cron
	l      pkgLog.Logger
}

func NewPoller(cfg PollerConfig, source HeadSource, syncer Syncer, l pkgLog.Logger) *Poller {
	return &Poller{
		cfg:    cfg,
		source: source,
		syncer: syncer,
		cron:   cron.New(),
		l:      l,
	}
}

// Start schedules polling. It is a no-op when the interval is not positive.
func (p *Poller) Start() error {
	if p.cfg.Interval <= 0 {
		return nil
	}

	spec := fmt.Sprintf("@every %s", p.cfg.Interval)
	if _, err := p.cron.AddFunc(spec, p.tick); err != nil {
		return fmt.Errorf("schedule poller %q: %w", spec, err)
	}
	p.cron.Start()
	p.l.Infof(context.Background(), "poller: checking %s/%s@%s every %s", p.cfg.Owner, p.cfg.Repo, p.cfg.Branch, p.cfg.Interval)
	return nil
}

// Stop halts scheduling. A tick already running is not interrupted.
func (p *Poller) Stop() {
	p.cron.Stop()
}

// SetInterval changes the interval used by the next Start.
func (p *Poller) SetInterval(d time.Duration) {
	p.cfg.Interval = d
}

// Enabled reports whether Start schedules anything.
func (p *Poller) Enabled() bool {
	return p.cfg.Interval > 0
}

func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	if _, err := p.PollNow(ctx); err != nil {
		p.l.Warnf(ctx, "poller: %v", err)
	}
}

// PollNow runs one check and reports whether a sync was requested.
func (p *Poller) PollNow(ctx context.Context) (bool, error) {
	head, err := p.source.BranchHead(ctx, p.cfg.Owner, p.cfg.Repo, p.cfg.Branch)
	if err != nil {
		return false, fmt.Errorf("read remote head of %s: %w", p.cfg.Branch, err)
	}

	last := p.syncer.State().LastSyncedRevision
	if last != "" && last == model.Revision(head) {
		p.l.Debugf(ctx, "poller: %s unchanged at %s", p.cfg.Branch, last.Short())
		return false, nil
	}

	p.l.Infof(ctx, "poller: %s moved to %s (last synced %q)", p.cfg.Branch, model.Revision(head).Short(), last.Short())
	p.syncer.TriggerAsync("poll")
	return true, nil
}
