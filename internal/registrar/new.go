package registrar

import (
	"sync"

	"repo-sync-automation/internal/model"
	pkgLog "repo-sync-automation/pkg/log"
)

type registrar struct {
	provider Provider
	tunnel   Tunnel
	opts     Options
	l        pkgLog.Logger

	mu      sync.Mutex
	current *model.WebhookRegistration
}

func New(provider Provider, tunnel Tunnel, opts Options, l pkgLog.Logger) Registrar {
	if len(opts.Events) == 0 {
		opts.Events = DefaultEvents
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HostSuffixes == nil {
		opts.HostSuffixes = DefaultHostSuffixes
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}
	return &registrar{
		provider: provider,
		tunnel:   tunnel,
		opts:     opts,
		l:        l,
	}
}
