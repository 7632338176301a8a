package webhook

import (
	"time"

	pkgLog "repo-sync-automation/pkg/log"
)

type Handler struct {
	trigger      Trigger
	security     *SecurityValidator
	secret       string
	parser       *GitHubParser
	router       *Router
	deliveries   *deliveryCache
	metrics      *Metrics
	maxBodyBytes int64
	now          func() time.Time
	l            pkgLog.Logger
}

func NewHandler(
	cfg Config,
	trigger Trigger,
	l pkgLog.Logger,
) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		trigger:      trigger,
		security:     NewSecurityValidator(cfg.Security),
		secret:       cfg.Security.Secret,
		parser:       NewGitHubParser(),
		router:       NewRouter(cfg.TrackedBranch),
		deliveries:   newDeliveryCache(cfg.DedupeTTL),
		metrics:      NewMetrics(),
		maxBodyBytes: maxBody,
		now:          time.Now,
		l:            l,
	}
}
