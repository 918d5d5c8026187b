package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"github.com/gin-gonic/gin"
)

// RecordHandler serves the ingested message logs, proposals and their attachments
type RecordHandler struct {
	store services.Store
	files storage.Store
}

// NewRecordHandler creates a new RecordHandler instance
func NewRecordHandler(store services.Store, files storage.Store) *RecordHandler {
	return &RecordHandler{store: store, files: files}
}

// ListEmailLogs pages through every logged message, newest first
// GET /api/email-logs
func (h *RecordHandler) ListEmailLogs(c *gin.Context) {
	h.listEmailLogs(c, "")
}

// ListEmailLogsForRequest lists the messages tied to one request
// GET /api/email-logs/request/:id
func (h *RecordHandler) ListEmailLogsForRequest(c *gin.Context) {
	h.listEmailLogs(c, c.Param("id"))
}

func (h *RecordHandler) listEmailLogs(c *gin.Context, requestID string) {
	page, limit := pageParams(c)
	q := services.ListQuery{RFPVendorID: requestID, Page: page, Limit: limit}.Normalized()

	logs, total, err := h.store.ListEmailLogs(c.Request.Context(), q)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to retrieve email logs")
		return
	}
	if logs == nil {
		logs = []models.EmailLog{}
	}

	respondOK(c, http.StatusOK, gin.H{
		"total":      total,
		"page":       q.Page,
		"limit":      q.Limit,
		"email_logs": logs,
	})
}

// ListProposals pages through every stored proposal, newest first
// GET /api/proposals
func (h *RecordHandler) ListProposals(c *gin.Context) {
	h.listProposals(c, "")
}

// ListProposalsForRequest lists the proposals received for one request
// GET /api/proposals/request/:id
func (h *RecordHandler) ListProposalsForRequest(c *gin.Context) {
	h.listProposals(c, c.Param("id"))
}

func (h *RecordHandler) listProposals(c *gin.Context, requestID string) {
	page, limit := pageParams(c)
	q := services.ListQuery{RFPVendorID: requestID, Page: page, Limit: limit}.Normalized()

	proposals, total, err := h.store.ListProposals(c.Request.Context(), q)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to retrieve proposals")
		return
	}
	if proposals == nil {
		proposals = []models.Proposal{}
	}

	respondOK(c, http.StatusOK, gin.H{
		"total":     total,
		"page":      q.Page,
		"limit":     q.Limit,
		"proposals": proposals,
	})
}

// DownloadAttachment streams a stored attachment by the location recorded on its log entry
// GET /api/attachments?location=...
func (h *RecordHandler) DownloadAttachment(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		respondError(c, http.StatusBadRequest, CodeValidation, "location is required")
		return
	}

	content, err := h.files.Open(c.Request.Context(), location)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidLocation):
			respondError(c, http.StatusBadRequest, CodeValidation, "Invalid attachment location")
		case errors.Is(err, storage.ErrFileNotFound):
			respondError(c, http.StatusNotFound, CodeNotFound, "Attachment not found")
		default:
			respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to read attachment")
		}
		return
	}

	name := path.Base(filepath.ToSlash(location))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, http.DetectContentType(content), content)
}
