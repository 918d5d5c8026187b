package handlers

import (
	"net/http"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/gin-gonic/gin"
)

// LogHandler exposes the audit log written by the sync cycle and outbound flow
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// ListLogs filters audit rows by level, module, action and time range (RFC 3339)
// GET /api/logs
func (h *LogHandler) ListLogs(c *gin.Context) {
	page, limit := pageParams(c)
	query := services.LogQuery{
		Level:  c.Query("level"),
		Module: c.Query("module"),
		Action: c.Query("action"),
		Page:   page,
		Limit:  limit,
	}

	for param, dst := range map[string]**time.Time{"start": &query.StartTime, "end": &query.EndTime} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, CodeValidation, "Invalid "+param+" time, expected RFC 3339")
			return
		}
		*dst = &t
	}

	result, err := h.logService.QueryLogs(c.Request.Context(), query)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to retrieve logs")
		return
	}
	logs := result.Logs
	if logs == nil {
		logs = []models.Log{}
	}

	respondOK(c, http.StatusOK, gin.H{
		"total": result.Total,
		"logs":  logs,
	})
}
