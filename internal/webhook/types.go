package webhook

import "time"

const (
	HeaderEventType       = "X-Event-Type"
	HeaderGitHubEvent     = "X-GitHub-Event"
	HeaderSignature       = "X-Signature"
	HeaderGitHubSignature = "X-Hub-Signature-256"
	HeaderDeliveryID      = "X-Delivery-ID"
	HeaderGitHubDelivery  = "X-GitHub-Delivery"
)

const (
	DefaultMaxBodyBytes = 25 << 20
	DefaultDedupeTTL    = 10 * time.Minute

	dedupeSize = 4096
)

// SecurityConfig holds webhook security settings
type SecurityConfig struct {
	Secret          string   // Shared secret for signature verification
	AllowedIPs      []string // IP whitelist (optional)
	RateLimitPerMin int      // Max requests per minute per client IP, 0 disables
}

// Config configures the event server handler.
type Config struct {
	Security      SecurityConfig
	TrackedBranch string
	MaxBodyBytes  int64
	DedupeTTL     time.Duration
}
