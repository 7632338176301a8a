package model

import "time"

// Revision is a full commit SHA.
type Revision string

// Short returns the abbreviated form used in logs and commit messages.
func (r Revision) Short() string {
	if len(r) <= 7 {
		return string(r)
	}
	return string(r[:7])
}

func (r Revision) String() string {
	return string(r)
}

// Action is the decision the router makes for an event.
type Action string

const (
	ActionSync        Action = "sync"
	ActionIgnore      Action = "ignore"
	ActionAcknowledge Action = "acknowledge"
)

// SyncState describes the coordinator's progress. Callers only ever see copies.
type SyncState struct {
	InProgress         bool      `json:"in_progress"`
	LastSyncedRevision Revision  `json:"last_synced_revision"`
	LastSyncAt         time.Time `json:"last_sync_at,omitempty"`
	LastError          string    `json:"last_error,omitempty"`
	Syncs              uint64    `json:"syncs"`
}

// WebhookRegistration is a webhook registered on the hosting provider.
type WebhookRegistration struct {
	ID        int64    `json:"id"`
	TargetURL string   `json:"target_url"`
	Secret    string   `json:"-"`
	Events    []string `json:"events"`
	Active    bool     `json:"active"`
}
