package registrar

import (
	"context"
	"time"
)

const DefaultTimeout = 10 * time.Second

var (
	DefaultEvents       = []string{"push"}
	DefaultHostSuffixes = []string{"ngrok-free.app", "ngrok-free.dev", "ngrok.app", "ngrok.io"}
)

// Options configures a Registrar.
type Options struct {
	Owner        string
	Repo         string
	WebhookPath  string
	Events       []string
	Timeout      time.Duration
	HostSuffixes []string // hosts of tunnel URLs left behind by earlier runs
}

// StaticURL is a Tunnel with a fixed public URL, for hosts reachable without a tunnel.
type StaticURL string

func (s StaticURL) PublicURL(ctx context.Context, localPort int) (string, error) {
	return string(s), nil
}
