package httpserver

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"repo-sync-automation/internal/housekeeping"
	"repo-sync-automation/internal/model"
	"repo-sync-automation/internal/webhook"
	"repo-sync-automation/pkg/log"
)

// SyncStateSource exposes the coordinator's state.
type SyncStateSource interface {
	State() model.SyncState
}

// RegistrationSource exposes the webhook registered on the provider, if any.
type RegistrationSource interface {
	Current() (model.WebhookRegistration, bool)
}

// TodoSource reports the working tree's todo checklist.
type TodoSource interface {
	Status() (housekeeping.TodoStatus, error)
}

// HTTPServer holds all dependencies for the HTTP server.
type HTTPServer struct {
	// Server
	gin         *gin.Engine
	l           log.Logger
	port        int
	mode        string
	environment string
	startedAt   time.Time

	// Repository
	repository string
	branch     string

	// Webhook
	webhookPath    string
	webhookHandler webhook.HTTPHandler

	// Status
	syncState    SyncStateSource
	registration RegistrationSource
	todo         TodoSource
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger      log.Logger
	Port        int
	Mode        string
	Environment string

	Repository string // owner/name
	Branch     string

	WebhookPath    string
	WebhookHandler webhook.HTTPHandler

	SyncState    SyncStateSource
	Registration RegistrationSource // optional
	Todo         TodoSource         // optional
}

// New creates a new HTTPServer instance with all routes mapped.
func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	gin.SetMode(cfg.Mode)

	webhookPath := cfg.WebhookPath
	if webhookPath == "" {
		webhookPath = "/webhook"
	}

	srv := &HTTPServer{
		l:              logger,
		gin:            gin.New(),
		port:           cfg.Port,
		mode:           cfg.Mode,
		environment:    cfg.Environment,
		startedAt:      time.Now(),
		repository:     cfg.Repository,
		branch:         cfg.Branch,
		webhookPath:    webhookPath,
		webhookHandler: cfg.WebhookHandler,
		syncState:      cfg.SyncState,
		registration:   cfg.Registration,
		todo:           cfg.Todo,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

func (srv HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.mode == "" {
		return errors.New("mode is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.webhookHandler == nil {
		return errors.New("webhook handler is required")
	}
	if srv.syncState == nil {
		return errors.New("sync state source is required")
	}
	return nil
}
