package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailbox"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rfp_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(path)
	})
	return db
}

func seedRequest(t *testing.T, store Store, id, email string) {
	t.Helper()
	seedRequestWithStatus(t, store, id, email, models.StatusPending)
}

func seedRequestWithStatus(t *testing.T, store Store, id, email string, status models.RequestStatus) {
	t.Helper()
	rv := &models.RFPVendor{ID: id, RFPID: "rfp-1", VendorID: "vendor-" + id, VendorEmail: email, Status: status}
	if err := store.CreateRFPVendor(context.Background(), rv); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

// fakeGateway returns the same batch on every call
type fakeGateway struct {
	msgs  []mailbox.RawMessage
	err   error
	calls int
}

func (g *fakeGateway) Fetch(ctx context.Context, window time.Duration, includeRead bool) ([]mailbox.RawMessage, error) {
	g.calls++
	return g.msgs, g.err
}

func reply(id, body string, attachments ...mailbox.Attachment) mailbox.RawMessage {
	return mailbox.RawMessage{
		MailboxMessageID: id,
		Subject:          "Re: RFP",
		From:             "sales@vendor.example",
		Body:             body,
		Date:             time.Now(),
		Attachments:      attachments,
	}
}
