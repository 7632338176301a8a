package registrar

import (
	"context"

	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/github"
)

// Registrar keeps exactly one provider webhook pointing at the current tunnel.
type Registrar interface {
	EnsureRegistered(ctx context.Context, localPort int, secret string) (model.WebhookRegistration, error)
	Deregister(ctx context.Context) error
	Current() (model.WebhookRegistration, bool)
}

// Provider is the hook management surface of the hosting provider.
type Provider interface {
	ListHooks(ctx context.Context, owner, repo string) ([]github.Hook, error)
	CreateHook(ctx context.Context, owner, repo string, input github.HookInput) (github.Hook, error)
	UpdateHook(ctx context.Context, owner, repo string, id int64, input github.HookInput) (github.Hook, error)
	DeleteHook(ctx context.Context, owner, repo string, id int64) error
	PingHook(ctx context.Context, owner, repo string, id int64) error
}

// Tunnel resolves the public URL that forwards to a local port.
type Tunnel interface {
	PublicURL(ctx context.Context, localPort int) (string, error)
}
