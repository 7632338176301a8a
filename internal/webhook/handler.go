package webhook

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"repo-sync-automation/internal/model"
	pkgLog "repo-sync-automation/pkg/log"
	pkgResponse "repo-sync-automation/pkg/response"
)

// HandleWebhook processes a webhook delivery.
// @Summary Receive a webhook delivery
// @Description Verifies the HMAC signature and schedules a sync for pushes to the tracked branch. Deliveries with a bad signature get the same 200 ack as accepted ones.
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Event-Type header string true "Event type (falls back to X-GitHub-Event)"
// @Param X-Signature header string true "sha256=<hex> HMAC of the body (falls back to X-Hub-Signature-256)"
// @Param X-Delivery-ID header string false "Delivery id (falls back to X-GitHub-Delivery)"
// @Success 200 {object} response.Resp
// @Failure 400 {object} response.Resp
// @Failure 403 {object} response.Resp
// @Failure 429 {object} response.Resp
// @Router /webhook [post]
func (h *Handler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	defer func() {
		h.metrics.ResponseCounter.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
	}()

	if err := h.security.ValidateIPAddress(c.Request); err != nil {
		h.l.Warnf(ctx, "webhook: rejected: %v", err)
		pkgResponse.Forbidden(c)
		return
	}

	clientIP := extractIP(c.Request)
	if err := h.security.CheckRateLimit(clientIP); err != nil {
		h.l.Warnf(ctx, "webhook: %v", err)
		pkgResponse.TooManyRequests(c)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes+1))
	if err != nil {
		h.l.Warnf(ctx, "webhook: failed to read body from %s: %v", clientIP, err)
		pkgResponse.Error(c, ErrUnreadableBody, nil)
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		h.l.Warnf(ctx, "webhook: body from %s exceeds %d bytes", clientIP, h.maxBodyBytes)
		pkgResponse.Error(c, ErrBodyTooLarge, nil)
		return
	}
	if len(body) == 0 {
		pkgResponse.Error(c, ErrEmptyBody, nil)
		return
	}

	eventType := header(c, HeaderEventType, HeaderGitHubEvent)
	if eventType == "" {
		pkgResponse.Error(c, ErrMissingEventType, nil)
		return
	}

	deliveryID := header(c, HeaderDeliveryID, HeaderGitHubDelivery)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	ctx = pkgLog.WithTraceID(ctx, deliveryID)
	h.metrics.WebhookCounter.WithLabelValues(string(model.ParseEventType(eventType))).Inc()

	signature := header(c, HeaderSignature, HeaderGitHubSignature)
	if !Verify(body, signature, h.secret) {
		h.metrics.SignatureFailureCounter.Inc()
		h.l.Warnf(ctx, "webhook: audit: %v: delivery=%s event=%s client=%s signature_present=%t",
			ErrSignatureInvalid, deliveryID, eventType, clientIP, signature != "")
		h.accepted(c)
		return
	}

	if h.deliveries.Seen(deliveryID) {
		h.l.Infof(ctx, "webhook: duplicate delivery %s ignored", deliveryID)
		h.accepted(c)
		return
	}

	event, err := h.parser.Parse(Delivery{
		EventType:  eventType,
		DeliveryID: deliveryID,
		Signature:  signature,
		Body:       body,
		ReceivedAt: h.now(),
	})
	if err != nil {
		h.l.Warnf(ctx, "webhook: %v", err)
		pkgResponse.Error(c, ErrMalformedPayload, nil)
		return
	}

	action := h.router.Classify(event)
	h.metrics.ActionCounter.WithLabelValues(string(action)).Inc()

	switch action {
	case model.ActionSync:
		h.l.Infof(ctx, "webhook: push to %s by %s (%s), scheduling sync",
			event.Branch, event.Pusher, model.Revision(event.After).Short())
		h.trigger.TriggerAsync("webhook:" + deliveryID)
	case model.ActionAcknowledge:
		h.l.Infof(ctx, "webhook: ping acknowledged")
	default:
		h.l.Debugf(ctx, "webhook: ignored %s event for ref %q", event.RawEventType, event.TargetRef)
	}

	h.accepted(c)
}

func (h *Handler) accepted(c *gin.Context) {
	pkgResponse.OK(c, gin.H{"status": "accepted"})
}

func header(c *gin.Context, primary, fallback string) string {
	if v := c.GetHeader(primary); v != "" {
		return v
	}
	return c.GetHeader(fallback)
}
