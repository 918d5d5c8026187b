package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailer"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/gin-gonic/gin"
)

// RequestSender mails an outstanding request to its vendor
type RequestSender interface {
	SendRequest(ctx context.Context, requestID, subject, html string) (*models.EmailLog, error)
}

// RequestHandler handles outstanding RFP requests
type RequestHandler struct {
	store      services.Store
	sender     RequestSender
	logService *services.LogService
}

// NewRequestHandler creates a new RequestHandler instance
func NewRequestHandler(store services.Store, sender RequestSender, logService *services.LogService) *RequestHandler {
	return &RequestHandler{store: store, sender: sender, logService: logService}
}

// CreateRequestBody registers a vendor against an RFP
type CreateRequestBody struct {
	ID          string `json:"id"`
	RFPID       string `json:"rfp_id" binding:"required"`
	VendorID    string `json:"vendor_id" binding:"required"`
	VendorEmail string `json:"vendor_email" binding:"required"`
}

// SendRequestBody is the mail to send; the tracking marker is appended server side
type SendRequestBody struct {
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}

// CreateRequest registers a new outstanding request
// POST /api/requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error())
		return
	}

	rv := &models.RFPVendor{
		ID:          strings.TrimSpace(body.ID),
		RFPID:       body.RFPID,
		VendorID:    body.VendorID,
		VendorEmail: strings.TrimSpace(body.VendorEmail),
	}
	if err := h.store.CreateRFPVendor(c.Request.Context(), rv); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			respondError(c, http.StatusConflict, CodeConflict, "Request already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to create request")
		return
	}

	respondOK(c, http.StatusCreated, rv)
}

// ListRequests lists requests, optionally those of one RFP
// GET /api/requests?rfp_id=
func (h *RequestHandler) ListRequests(c *gin.Context) {
	requests, err := h.store.ListRFPVendors(c.Request.Context(), c.Query("rfp_id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to retrieve requests")
		return
	}
	if requests == nil {
		requests = []models.RFPVendor{}
	}
	respondOK(c, http.StatusOK, gin.H{"requests": requests})
}

// GetRequest returns one request with its current status
// GET /api/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	rv, err := h.store.FindRFPVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "Request not found")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to retrieve request")
		return
	}
	respondOK(c, http.StatusOK, rv)
}

// SendRequest mails the request to its vendor
// POST /api/requests/:id/send
func (h *RequestHandler) SendRequest(c *gin.Context) {
	var body SendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error())
		return
	}

	id := c.Param("id")
	entry, err := h.sender.SendRequest(c.Request.Context(), id, body.Subject, body.HTML)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			respondError(c, http.StatusNotFound, CodeNotFound, "Request not found")
		case errors.Is(err, services.ErrRequestClosed):
			respondError(c, http.StatusConflict, CodeConflict, err.Error())
		case errors.Is(err, services.ErrNoRecipient), errors.Is(err, mailer.ErrInvalidRecipients):
			respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		case errors.Is(err, mailer.ErrNotConfigured):
			respondError(c, http.StatusServiceUnavailable, CodeSendFailed, "Outbound mail is not configured")
		default:
			h.logService.LogError(models.LogModuleAPI, "send_request", "Failed to send request", map[string]interface{}{
				"request_id": id,
				"error":      err.Error(),
			})
			respondError(c, http.StatusBadGateway, CodeSendFailed, "Failed to send email")
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"message_id": entry.MailboxMessageID,
		"email_log":  entry,
	})
}
