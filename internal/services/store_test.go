package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
)

func TestGormStoreEmailLogUniqueness(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.FindEmailLogByMailboxID(ctx, "<a@b>"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	first := &models.EmailLog{MailboxMessageID: "<a@b>", Direction: models.DirectionIncoming}
	if err := store.CreateEmailLog(ctx, first); err != nil {
		t.Fatalf("CreateEmailLog: %v", err)
	}
	if first.ID == "" {
		t.Error("id should be assigned on create")
	}
	second := &models.EmailLog{MailboxMessageID: "<a@b>", Direction: models.DirectionIncoming}
	if err := store.CreateEmailLog(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := store.FindEmailLogByMailboxID(ctx, "<a@b>")
	if err != nil || got.ID != first.ID {
		t.Errorf("FindEmailLogByMailboxID = %+v, %v", got, err)
	}
}

func TestGormStoreRequestStatus(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	seedRequest(t, store, "rv-1", "v@vendor.example")

	rv, err := store.FindRFPVendor(ctx, "rv-1")
	if err != nil || rv.Status != models.StatusPending {
		t.Fatalf("new request should be pending: %+v, %v", rv, err)
	}

	now := time.Now()
	if err := store.UpdateRequestStatus(ctx, "rv-1", models.StatusSent, &now); err != nil {
		t.Fatalf("UpdateRequestStatus: %v", err)
	}
	rv, _ = store.FindRFPVendor(ctx, "rv-1")
	if rv.Status != models.StatusSent || rv.SentAt == nil {
		t.Errorf("expected sent with timestamp, got %+v", rv)
	}

	if err := store.UpdateRequestStatus(ctx, "missing", models.StatusReplied, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateRequestStatus(ctx, "rv-1", "archived", nil); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if err := store.CreateRFPVendor(ctx, &models.RFPVendor{ID: "rv-1", RFPID: "rfp-1", VendorID: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for a reused token, got %v", err)
	}
}

func TestGormStoreMarkReplied(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	seedRequestWithStatus(t, store, "rv-sent", "a@vendor.example", models.StatusSent)
	seedRequestWithStatus(t, store, "rv-expired", "b@vendor.example", models.StatusExpired)

	changed, err := store.MarkReplied(ctx, "rv-sent")
	if err != nil || !changed {
		t.Fatalf("sent request should move to replied: %v, %v", changed, err)
	}
	changed, err = store.MarkReplied(ctx, "rv-sent")
	if err != nil || changed {
		t.Errorf("second reply should be a no-op: %v, %v", changed, err)
	}

	changed, err = store.MarkReplied(ctx, "rv-expired")
	if err != nil || changed {
		t.Errorf("expired request must not change: %v, %v", changed, err)
	}
	rv, _ := store.FindRFPVendor(ctx, "rv-expired")
	if rv.Status != models.StatusExpired {
		t.Errorf("status = %s, want expired", rv.Status)
	}

	if _, err := store.MarkReplied(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGormStoreListing(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	seedRequest(t, store, "rv-1", "a@vendor.example")
	seedRequest(t, store, "rv-2", "b@vendor.example")

	for i, rid := range []string{"rv-1", "rv-1", "rv-2"} {
		id := rid
		entry := &models.EmailLog{MailboxMessageID: string(rune('a'+i)) + "@m", RFPVendorID: &id, Direction: models.DirectionIncoming}
		if err := store.CreateEmailLog(ctx, entry); err != nil {
			t.Fatal(err)
		}
		if err := store.CreateProposal(ctx, &models.Proposal{RFPVendorID: id, EmailLogID: entry.ID}); err != nil {
			t.Fatal(err)
		}
	}

	logs, total, err := store.ListEmailLogs(ctx, ListQuery{RFPVendorID: "rv-1"})
	if err != nil || total != 2 || len(logs) != 2 {
		t.Errorf("ListEmailLogs = %d/%d, %v", len(logs), total, err)
	}
	props, total, err := store.ListProposals(ctx, ListQuery{Limit: 1})
	if err != nil || total != 3 || len(props) != 1 {
		t.Errorf("ListProposals = %d/%d, %v", len(props), total, err)
	}
	reqs, err := store.ListRFPVendors(ctx, "rfp-1")
	if err != nil || len(reqs) != 2 {
		t.Errorf("ListRFPVendors = %d, %v", len(reqs), err)
	}
}
