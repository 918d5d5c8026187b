package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/local"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailbox"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"github.com/google/uuid"
)

// SyncSummary counts what one cycle did. Received = Saved + Skipped + Duplicates
// unless the cycle was cancelled part way.
type SyncSummary struct {
	Received        int `json:"received"`
	Saved           int `json:"saved"`
	Skipped         int `json:"skipped"`
	Duplicates      int `json:"duplicates"`
	ProposalsStored int `json:"proposals_stored"`
}

// ProposalRouter chooses and runs the extraction for one reply
type ProposalRouter interface {
	Route(ctx context.Context, cleanedBody string, docs []functions.Document) (*functions.RouteResult, error)
}

// SyncOptions tune the fetch window
type SyncOptions struct {
	Window      time.Duration
	IncludeRead bool
}

// SyncService ingests vendor replies: fetch, dedup, correlate, log, extract
type SyncService struct {
	gateway mailbox.Gateway
	store   Store
	router  ProposalRouter
	files   storage.Store
	logs    *LogService
	lock    CycleLock
	opts    SyncOptions
}

// NewSyncService wires the cycle. files and logs may be nil.
func NewSyncService(gateway mailbox.Gateway, store Store, router ProposalRouter, files storage.Store, logs *LogService, opts SyncOptions) *SyncService {
	return &SyncService{
		gateway: gateway,
		store:   store,
		router:  router,
		files:   files,
		logs:    logs,
		lock:    NoopLock{},
		opts:    opts,
	}
}

// WithLock sets the cross-process cycle lock
func (s *SyncService) WithLock(lock CycleLock) *SyncService {
	if lock != nil {
		s.lock = lock
	}
	return s
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSaved
	outcomeDuplicate
)

// RunCycle runs one ingestion pass and never fails. A fetch error yields an
// empty summary; per-message errors only move counters.
func (s *SyncService) RunCycle(ctx context.Context) SyncSummary {
	cycleID := uuid.NewString()
	ctx = logger.WithValue(ctx, logger.CycleIDKey, cycleID)
	start := time.Now()
	var summary SyncSummary

	release, ok, err := s.lock.Acquire(ctx)
	switch {
	case err != nil:
		// The unique mailbox id index still prevents double ingestion
		logger.Warn(ctx, "cycle lock unavailable, continuing", "error", err)
	case !ok:
		logger.Info(ctx, "another process holds the sync lease, skipping cycle")
		return summary
	default:
		defer release()
	}

	msgs, err := s.gateway.Fetch(ctx, s.opts.Window, s.opts.IncludeRead)
	if err != nil {
		logger.Error(ctx, "mailbox fetch failed", "error", err)
		s.logs.LogCycle(cycleID, summary, time.Since(start), err)
		return summary
	}
	summary.Received = len(msgs)

	for _, msg := range msgs {
		// Cancellation is honoured between messages only
		if ctx.Err() != nil {
			logger.Warn(ctx, "cycle cancelled", "remaining", summary.Received-summary.Saved-summary.Skipped-summary.Duplicates)
			break
		}
		out, stored := s.processMessage(ctx, msg)
		switch out {
		case outcomeSaved:
			summary.Saved++
		case outcomeDuplicate:
			summary.Duplicates++
		default:
			summary.Skipped++
		}
		if stored {
			summary.ProposalsStored++
		}
	}

	logger.Info(ctx, "sync cycle completed",
		"received", summary.Received,
		"saved", summary.Saved,
		"skipped", summary.Skipped,
		"duplicates", summary.Duplicates,
		"proposals_stored", summary.ProposalsStored,
	)
	s.logs.LogCycle(cycleID, summary, time.Since(start), nil)
	return summary
}

// processMessage runs the per-message steps. Each step gates the next; a panic
// turns the whole message into a skip.
func (s *SyncService) processMessage(ctx context.Context, msg mailbox.RawMessage) (out outcome, stored bool) {
	ctx = logger.WithValue(ctx, logger.MailboxIDKey, msg.MailboxMessageID)
	step := "dedup"
	var requestID string

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "message processing panicked", "step", step, "panic", r)
			s.logs.LogMessageFailure(MessageFailureDetails{
				MailboxMessageID: msg.MailboxMessageID,
				RFPVendorID:      requestID,
				Step:             step,
				ErrorMsg:         fmt.Sprint(r),
			})
			out, stored = outcomeSkipped, false
		}
	}()

	if _, err := s.store.FindEmailLogByMailboxID(ctx, msg.MailboxMessageID); err == nil {
		logger.Debug(ctx, "message already logged")
		return outcomeDuplicate, false
	} else if !errors.Is(err, ErrNotFound) {
		logger.Error(ctx, "dedup lookup failed", "error", err)
		return outcomeSkipped, false
	}

	step = "correlate"
	body := local.NormalizeBody(msg.Body)
	token, ok := local.ExtractTrackingID(body)
	if !ok {
		logger.Debug(ctx, "no tracking marker, ignoring message")
		return outcomeSkipped, false
	}
	rv, err := s.store.FindRFPVendor(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info(ctx, "unknown tracking token", "ref_id", token)
		} else {
			logger.Error(ctx, "request lookup failed", "ref_id", token, "error", err)
		}
		return outcomeSkipped, false
	}
	requestID = rv.ID

	step = "log"
	refs := s.saveAttachments(ctx, msg)
	entry := &models.EmailLog{
		MailboxMessageID: msg.MailboxMessageID,
		RFPVendorID:      &requestID,
		Direction:        models.DirectionIncoming,
		FromAddr:         msg.From,
		Subject:          msg.Subject,
		Body:             body,
		Attachments:      refs,
	}
	if err := s.store.CreateEmailLog(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			logger.Info(ctx, "message logged concurrently", "ref_id", requestID)
			return outcomeDuplicate, false
		}
		logger.Error(ctx, "failed to write message log", "ref_id", requestID, "error", err)
		s.logs.LogMessageFailure(MessageFailureDetails{
			MailboxMessageID: msg.MailboxMessageID,
			RFPVendorID:      requestID,
			Step:             step,
			ErrorMsg:         err.Error(),
		})
		return outcomeSkipped, false
	}

	step = "status"
	if changed, err := s.store.MarkReplied(ctx, requestID); err != nil {
		logger.Warn(ctx, "failed to mark request replied", "ref_id", requestID, "error", err)
	} else if !changed {
		logger.Info(ctx, "request not in sent state, status unchanged", "ref_id", requestID, "status", rv.Status)
	}

	step = "extract"
	docs := make([]functions.Document, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		docs = append(docs, functions.Document{Filename: a.Filename, Content: a.Content})
	}
	res, err := s.router.Route(ctx, local.CleanText(body), docs)
	if err != nil || res == nil || res.ExtractionResult == nil || res.Fields == nil {
		logger.Warn(ctx, "no proposal extracted", "ref_id", requestID, "error", err)
		return outcomeSaved, false
	}

	step = "proposal"
	proposal := &models.Proposal{
		RFPVendorID:   requestID,
		EmailLogID:    entry.ID,
		RawText:       body,
		ExtractedData: *res.Fields,
		Attachments:   refs,
		ExtractedBy:   res.ExtractedBy,
		Source:        res.Source,
	}
	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		logger.Error(ctx, "failed to store proposal", "ref_id", requestID, "error", err)
		s.logs.LogMessageFailure(MessageFailureDetails{
			MailboxMessageID: msg.MailboxMessageID,
			RFPVendorID:      requestID,
			Step:             step,
			ErrorMsg:         err.Error(),
		})
		return outcomeSaved, false
	}

	logger.Info(ctx, "proposal stored", "ref_id", requestID, "source", res.Source, "extracted_by", res.ExtractedBy)
	return outcomeSaved, true
}

// saveAttachments keeps every attachment; failures are logged and the ref dropped
func (s *SyncService) saveAttachments(ctx context.Context, msg mailbox.RawMessage) []models.AttachmentRef {
	if s.files == nil || len(msg.Attachments) == 0 {
		return nil
	}
	refs := make([]models.AttachmentRef, 0, len(msg.Attachments))
	for i, a := range msg.Attachments {
		ref, err := s.files.Save(ctx, msg.MailboxMessageID, i, a.Filename, a.Content)
		if err != nil {
			logger.Warn(ctx, "failed to store attachment", "filename", a.Filename, "error", err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
