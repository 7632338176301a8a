package webhook

import "errors"

// Client-facing errors. Their text is returned in 400 responses, so it must
// never carry internal detail.
var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrEmptyBody        = errors.New("empty request body")
	ErrUnreadableBody   = errors.New("unreadable request body")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrMissingEventType = errors.New("missing event type header")
	ErrMalformedPayload = errors.New("malformed payload")
)
