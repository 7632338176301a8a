package webhook

import "github.com/gin-gonic/gin"

// Trigger starts a sync without waiting for it.
type Trigger interface {
	TriggerAsync(reason string)
}

// HTTPHandler serves webhook deliveries.
type HTTPHandler interface {
	HandleWebhook(c *gin.Context)
}
