package model

import (
	"strings"
	"time"
)

// EventType is the kind of notification a webhook delivery carries.
type EventType string

const (
	EventPush    EventType = "push"
	EventPing    EventType = "ping"
	EventUnknown EventType = "unknown"
)

// ParseEventType maps a raw event header value to an EventType.
func ParseEventType(raw string) EventType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(EventPush):
		return EventPush
	case string(EventPing):
		return EventPing
	default:
		return EventUnknown
	}
}

const refHeadsPrefix = "refs/heads/"

// WebhookEvent represents one inbound webhook delivery.
type WebhookEvent struct {
	EventType       EventType // Classified event type
	RawEventType    string    // Header value as received
	DeliveryID      string    // Provider delivery id (or generated)
	TargetRef       string    // Full ref, e.g. refs/heads/main
	Branch          string    // Short branch name derived from TargetRef
	After           string    // Commit SHA the ref points to after the push
	Pusher          string    // Who pushed
	HeadMessage     string    // Head commit message
	RawBody         []byte    // Exact bytes received
	SignatureHeader string    // algorithm=hexdigest
	ReceivedAt      time.Time // When the delivery arrived
}

// BranchFromRef extracts the branch name from refs/heads/<branch>.
// Refs of any other kind return "".
func BranchFromRef(ref string) string {
	if !strings.HasPrefix(ref, refHeadsPrefix) {
		return ""
	}
	return strings.TrimPrefix(ref, refHeadsPrefix)
}

// RefForBranch returns the full ref for a branch name. Full refs pass through.
func RefForBranch(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return refHeadsPrefix + branch
}
