package httpserver

import (
	"github.com/gin-gonic/gin"

	"repo-sync-automation/internal/housekeeping"
	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/response"
)

type syncStatus struct {
	InProgress         bool              `json:"in_progress"`
	LastSyncedRevision model.Revision    `json:"last_synced_revision"`
	LastSyncAt         response.DateTime `json:"last_sync_at"`
	LastError          string            `json:"last_error,omitempty"`
	Syncs              uint64            `json:"syncs"`
}

type statusResp struct {
	Service    string                     `json:"service"`
	Version    string                     `json:"version"`
	Repository string                     `json:"repository"`
	Branch     string                     `json:"branch"`
	StartedAt  response.DateTime          `json:"started_at"`
	Sync       syncStatus                 `json:"sync"`
	Webhook    *model.WebhookRegistration `json:"webhook,omitempty"`
	Todo       *housekeeping.TodoStatus   `json:"todo,omitempty"`
}

// status reports sync progress, the registered webhook and the todo checklist.
// @Summary Daemon status
// @Tags Status
// @Produce json
// @Success 200 {object} response.Resp
// @Router /status [get]
func (srv HTTPServer) status(c *gin.Context) {
	ctx := c.Request.Context()
	state := srv.syncState.State()

	resp := statusResp{
		Service:    ServiceName,
		Version:    HealthVersion,
		Repository: srv.repository,
		Branch:     srv.branch,
		StartedAt:  response.DateTime(srv.startedAt),
		Sync: syncStatus{
			InProgress:         state.InProgress,
			LastSyncedRevision: state.LastSyncedRevision,
			LastSyncAt:         response.DateTime(state.LastSyncAt),
			LastError:          state.LastError,
			Syncs:              state.Syncs,
		},
	}

	if srv.registration != nil {
		if reg, ok := srv.registration.Current(); ok {
			resp.Webhook = &reg
		}
	}

	if srv.todo != nil {
		todo, err := srv.todo.Status()
		if err != nil {
			srv.l.Warnf(ctx, "httpserver.status: todo: %v", err)
		} else {
			resp.Todo = &todo
		}
	}

	response.OK(c, resp)
}
