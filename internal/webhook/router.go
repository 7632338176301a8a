package webhook

import "repo-sync-automation/internal/model"

// Router decides what to do with a verified event.
type Router struct {
	trackedRef string
}

// NewRouter accepts the tracked branch in short ("main") or full form.
func NewRouter(trackedBranch string) *Router {
	return &Router{trackedRef: model.RefForBranch(trackedBranch)}
}

// Classify maps an event to an action. Only pushes to the tracked branch sync.
func (r *Router) Classify(event model.WebhookEvent) model.Action {
	switch event.EventType {
	case model.EventPing:
		return model.ActionAcknowledge
	case model.EventPush:
		if event.TargetRef != "" && event.TargetRef == r.trackedRef {
			return model.ActionSync
		}
		return model.ActionIgnore
	default:
		return model.ActionIgnore
	}
}

// TrackedRef returns the full ref pushes must target.
func (r *Router) TrackedRef() string {
	return r.trackedRef
}
