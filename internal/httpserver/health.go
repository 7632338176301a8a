package httpserver

import (
	"repo-sync-automation/pkg/response"

	"github.com/gin-gonic/gin"
)

// Health response constants (single source for version and service identity).
const (
	HealthVersion = "1.0.0"
	ServiceName   = "repo-sync-automation"
)

// healthCheck handles health check requests
// @Summary Health Check
// @Description Check if the daemon is healthy
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Daemon is healthy"
// @Router /health [get]
func (srv HTTPServer) healthCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "healthy",
		"version": HealthVersion,
		"service": ServiceName,
	})
}

// readyCheck reports ready once the working tree has been synced at least once.
// @Summary Readiness Check
// @Description Ready after the first successful sync
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Daemon is ready"
// @Failure 503 {object} response.Resp "No successful sync yet"
// @Router /ready [get]
func (srv HTTPServer) readyCheck(c *gin.Context) {
	state := srv.syncState.State()
	if state.LastSyncedRevision == "" {
		response.ServiceUnavailable(c, gin.H{
			"status":      "not_ready",
			"in_progress": state.InProgress,
			"last_error":  state.LastError,
		})
		return
	}

	response.OK(c, gin.H{
		"status":   "ready",
		"revision": state.LastSyncedRevision,
		"version":  HealthVersion,
		"service":  ServiceName,
	})
}

// liveCheck handles liveness check requests
// @Summary Liveness Check
// @Description Check if the daemon is alive
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Daemon is alive"
// @Router /live [get]
func (srv HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "alive",
		"version": HealthVersion,
		"service": ServiceName,
	})
}
