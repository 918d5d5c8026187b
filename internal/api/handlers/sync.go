package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/gin-gonic/gin"
)

// SyncTrigger runs ingestion cycles on demand
type SyncTrigger interface {
	RunNow(ctx context.Context) services.SyncSummary
	LastRun() (services.SyncSummary, time.Time)
	IsRunning() bool
}

// SyncHandler exposes the manual ingestion trigger
type SyncHandler struct {
	trigger    SyncTrigger
	logService *services.LogService
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(trigger SyncTrigger, logService *services.LogService) *SyncHandler {
	return &SyncHandler{trigger: trigger, logService: logService}
}

// TriggerSync runs one cycle and returns its summary. A cycle never fails,
// so this answers 200 even when the mailbox was unreachable.
// POST /api/sync
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	h.logService.LogInfo(models.LogModuleAPI, "sync", "Manual sync requested", map[string]interface{}{
		"client_ip": c.ClientIP(),
	})
	summary := h.trigger.RunNow(c.Request.Context())
	respondOK(c, http.StatusOK, summary)
}

// GetSyncStatus reports the scheduler state and the latest cycle
// GET /api/sync/status
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	summary, at := h.trigger.LastRun()
	var lastRunAt *int64
	if !at.IsZero() {
		ts := at.Unix()
		lastRunAt = &ts
	}
	respondOK(c, http.StatusOK, gin.H{
		"scheduler_running": h.trigger.IsRunning(),
		"last_run_at":       lastRunAt,
		"last_summary":      summary,
	})
}
