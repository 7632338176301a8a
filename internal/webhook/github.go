package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"repo-sync-automation/internal/model"
)

// GitHubParser turns verified GitHub deliveries into WebhookEvents.
type GitHubParser struct{}

func NewGitHubParser() *GitHubParser {
	return &GitHubParser{}
}

// Delivery is the transport-level part of a webhook request.
type Delivery struct {
	EventType  string
	DeliveryID string
	Signature  string
	Body       []byte
	ReceivedAt time.Time
}

// Parse builds the event for a delivery. Every payload must be a JSON object;
// push payloads also have their ref and head commit extracted.
func (p *GitHubParser) Parse(d Delivery) (model.WebhookEvent, error) {
	event := model.WebhookEvent{
		EventType:       model.ParseEventType(d.EventType),
		RawEventType:    d.EventType,
		DeliveryID:      d.DeliveryID,
		RawBody:         d.Body,
		SignatureHeader: d.Signature,
		ReceivedAt:      d.ReceivedAt,
	}

	if event.EventType == model.EventPush {
		if err := p.parsePush(d.Body, &event); err != nil {
			return model.WebhookEvent{}, err
		}
		return event, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(d.Body, &obj); err != nil {
		return model.WebhookEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return event, nil
}

func (p *GitHubParser) parsePush(payload []byte, event *model.WebhookEvent) error {
	var push struct {
		Ref    string `json:"ref"`
		After  string `json:"after"`
		Pusher struct {
			Name string `json:"name"`
		} `json:"pusher"`
		HeadCommit *struct {
			ID      string `json:"id"`
			Message string `json:"message"`
		} `json:"head_commit"`
	}

	if err := json.Unmarshal(payload, &push); err != nil {
		return fmt.Errorf("%w: push event: %v", ErrMalformedPayload, err)
	}

	event.TargetRef = push.Ref
	event.Branch = model.BranchFromRef(push.Ref)
	event.After = push.After
	event.Pusher = push.Pusher.Name
	if push.HeadCommit != nil {
		event.HeadMessage = push.HeadCommit.Message
		if event.After == "" {
			event.After = push.HeadCommit.ID
		}
	}
	return nil
}
