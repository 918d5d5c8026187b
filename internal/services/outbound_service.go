package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/local"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailer"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
)

// Outbound errors
var (
	ErrNoRecipient   = errors.New("request has no vendor email")
	ErrRequestClosed = errors.New("request already replied or expired")
)

// OutboundService sends RFP requests to vendors with the tracking marker attached
type OutboundService struct {
	store  Store
	sender mailer.Sender
	logs   *LogService
}

// NewOutboundService creates a new OutboundService
func NewOutboundService(store Store, sender mailer.Sender, logs *LogService) *OutboundService {
	return &OutboundService{store: store, sender: sender, logs: logs}
}

// SendRequest mails the request to its vendor, marks it sent and logs the outgoing message.
// Send failures leave the request untouched and are returned.
func (s *OutboundService) SendRequest(ctx context.Context, requestID, subject, html string) (*models.EmailLog, error) {
	rv, err := s.store.FindRFPVendor(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rv.VendorEmail) == "" {
		return nil, ErrNoRecipient
	}
	if rv.Status == models.StatusReplied || rv.Status == models.StatusExpired {
		return nil, fmt.Errorf("%w: %s", ErrRequestClosed, rv.Status)
	}

	text := local.HTMLToText(html) + "\n\n" + local.TrackingMarker(rv.ID)
	messageID, err := s.sender.Send(ctx, mailer.Message{
		To:      []string{rv.VendorEmail},
		Subject: subject,
		Text:    text,
		HTML:    local.AppendTrackingHTML(html, rv.ID),
	})
	s.logs.LogEmailSend(rv.ID, rv.VendorEmail, messageID, err)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.store.UpdateRequestStatus(ctx, rv.ID, models.StatusSent, &now); err != nil {
		logger.Warn(ctx, "request sent but status not updated", "ref_id", rv.ID, "error", err)
	}

	entry := &models.EmailLog{
		MailboxMessageID: messageID,
		RFPVendorID:      &rv.ID,
		Direction:        models.DirectionOutgoing,
		Subject:          subject,
		Body:             text,
	}
	if err := s.store.CreateEmailLog(ctx, entry); err != nil {
		logger.Warn(ctx, "request sent but not logged", "ref_id", rv.ID, "message_id", messageID, "error", err)
	}
	logger.Info(ctx, "request sent", "ref_id", rv.ID, "to", rv.VendorEmail, "message_id", messageID)
	return entry, nil
}
