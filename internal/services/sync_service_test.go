package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/ocr"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailbox"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/gorm"
)

// pdfText pretends every PDF reads as its own bytes
type pdfText struct{}

func (pdfText) Name() string { return "bytes" }

func (pdfText) Recognize(ctx context.Context, content []byte, format ocr.Format) (string, error) {
	return string(content), nil
}

func newTestSync(t *testing.T, db *gorm.DB, gw mailbox.Gateway, store Store) *SyncService {
	t.Helper()
	router := functions.NewRouter(functions.NewProcessor(nil, pdfText{}, 0))
	files := storage.NewLocalStore(t.TempDir())
	return NewSyncService(gw, store, router, files, NewLogService(db), SyncOptions{})
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRunCycleStoresReplyAndProposal(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequestWithStatus(t, store, "rv-7", "sales@vendor.example", models.StatusSent)

	gw := &fakeGateway{msgs: []mailbox.RawMessage{
		reply("<r1@vendor>", "<p>Our quote</p><p>20 laptops</p><p>Grand Total: $24,000</p><span>Ref-ID:rv-7</span>"),
	}}
	summary := newTestSync(t, db, gw, store).RunCycle(context.Background())

	want := SyncSummary{Received: 1, Saved: 1, ProposalsStored: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	rv, _ := store.FindRFPVendor(context.Background(), "rv-7")
	if rv.Status != models.StatusReplied {
		t.Errorf("status = %s, want replied", rv.Status)
	}
	entry, err := store.FindEmailLogByMailboxID(context.Background(), "<r1@vendor>")
	if err != nil {
		t.Fatalf("email log missing: %v", err)
	}
	if strings.Contains(entry.Body, "<p>") || entry.Direction != models.DirectionIncoming {
		t.Errorf("body should be normalized text: %+v", entry)
	}

	var p models.Proposal
	if err := db.First(&p).Error; err != nil {
		t.Fatal(err)
	}
	if p.RFPVendorID != "rv-7" || p.EmailLogID != entry.ID || p.Source != models.SourceBody {
		t.Errorf("unexpected proposal %+v", p)
	}
	if p.ExtractedData.TotalPrice == nil || *p.ExtractedData.TotalPrice != 24000 {
		t.Errorf("total = %v", p.ExtractedData.TotalPrice)
	}
	if countRows(t, db, &models.Log{}) == 0 {
		t.Error("cycle summary should be written to the audit log")
	}
}

func TestRunCycleIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("second cycle over the same window only finds duplicates", prop.ForAll(
		func(n int) bool {
			db := setupTestDB(t)
			store := NewGormStore(db)
			seedRequest(t, store, "rv-1", "v@vendor.example")

			var msgs []mailbox.RawMessage
			for i := 0; i < n; i++ {
				msgs = append(msgs, reply(fmt.Sprintf("<m%d@vendor>", i), "Total: 100 USD Ref-ID:rv-1"))
			}
			svc := newTestSync(t, db, &fakeGateway{msgs: msgs}, store)

			first := svc.RunCycle(context.Background())
			second := svc.RunCycle(context.Background())

			return first.Saved == n &&
				second == SyncSummary{Received: n, Duplicates: n} &&
				countRows(t, db, &models.EmailLog{}) == int64(n) &&
				countRows(t, db, &models.Proposal{}) == int64(n)
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

func TestRunCycleSkipsUncorrelatedMessages(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequest(t, store, "rv-1", "v@vendor.example")

	gw := &fakeGateway{msgs: []mailbox.RawMessage{
		reply("<newsletter@x>", "Weekly digest, no marker here"),
		reply("<stranger@x>", "Quote attached. Ref-ID:does-not-exist"),
	}}
	summary := newTestSync(t, db, gw, store).RunCycle(context.Background())

	if summary != (SyncSummary{Received: 2, Skipped: 2}) {
		t.Fatalf("summary = %+v", summary)
	}
	if n := countRows(t, db, &models.EmailLog{}); n != 0 {
		t.Errorf("skipped messages must not be logged, got %d rows", n)
	}
	rv, _ := store.FindRFPVendor(context.Background(), "rv-1")
	if rv.Status != models.StatusPending {
		t.Errorf("status changed to %s", rv.Status)
	}
}

func TestRunCyclePrefersAttachments(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequest(t, store, "rv-2", "v@vendor.example")

	gw := &fakeGateway{msgs: []mailbox.RawMessage{
		reply("<a@vendor>", "See attached. Total: 100 USD Ref-ID:rv-2",
			mailbox.Attachment{Filename: "terms.docx", Content: []byte("Grand Total: $1")},
			mailbox.Attachment{Filename: "quote.pdf", Content: []byte("Grand Total: $900")},
		),
	}}
	summary := newTestSync(t, db, gw, store).RunCycle(context.Background())
	if summary.ProposalsStored != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	var p models.Proposal
	if err := db.First(&p).Error; err != nil {
		t.Fatal(err)
	}
	if p.Source != "quote.pdf" {
		t.Errorf("source = %q, want quote.pdf", p.Source)
	}
	if p.ExtractedData.TotalPrice == nil || *p.ExtractedData.TotalPrice != 900 {
		t.Errorf("total = %v, want 900 from the attachment", p.ExtractedData.TotalPrice)
	}
	if len(p.Attachments) != 2 || p.Attachments[1].Size != int64(len("Grand Total: $900")) {
		t.Errorf("attachment refs = %+v", p.Attachments)
	}
	entry, err := store.FindEmailLogByMailboxID(context.Background(), "<a@vendor>")
	if err != nil {
		t.Fatal(err)
	}
	if p.RawText != entry.Body || !strings.Contains(p.RawText, "See attached") {
		t.Errorf("raw text = %q, want the message body %q", p.RawText, entry.Body)
	}
}

func TestRunCycleOnlyRepliesToSentRequests(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequestWithStatus(t, store, "rv-sent", "a@vendor.example", models.StatusSent)
	seedRequestWithStatus(t, store, "rv-expired", "b@vendor.example", models.StatusExpired)
	seedRequestWithStatus(t, store, "rv-pending", "c@vendor.example", models.StatusPending)

	gw := &fakeGateway{msgs: []mailbox.RawMessage{
		reply("<s@vendor>", "Total: 10 USD Ref-ID:rv-sent"),
		reply("<e@vendor>", "Total: 20 USD Ref-ID:rv-expired"),
		reply("<p@vendor>", "Total: 30 USD Ref-ID:rv-pending"),
	}}
	summary := newTestSync(t, db, gw, store).RunCycle(context.Background())
	if summary.Saved != 3 || summary.ProposalsStored != 3 {
		t.Fatalf("replies to any known request are still stored: %+v", summary)
	}

	want := map[string]models.RequestStatus{
		"rv-sent":    models.StatusReplied,
		"rv-expired": models.StatusExpired,
		"rv-pending": models.StatusPending,
	}
	for id, status := range want {
		rv, err := store.FindRFPVendor(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if rv.Status != status {
			t.Errorf("%s status = %s, want %s", id, rv.Status, status)
		}
	}
}

// failingStore fails CreateEmailLog for one mailbox id
type failingStore struct {
	Store
	failOn string
}

func (s *failingStore) CreateEmailLog(ctx context.Context, entry *models.EmailLog) error {
	if entry.MailboxMessageID == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.CreateEmailLog(ctx, entry)
}

func TestRunCycleIsolatesMessageFailures(t *testing.T) {
	db := setupTestDB(t)
	store := &failingStore{Store: NewGormStore(db), failOn: "<m3@vendor>"}
	seedRequest(t, store, "rv-1", "v@vendor.example")

	var msgs []mailbox.RawMessage
	for i := 1; i <= 5; i++ {
		msgs = append(msgs, reply(fmt.Sprintf("<m%d@vendor>", i), "Total: 10 USD Ref-ID:rv-1"))
	}
	summary := newTestSync(t, db, &fakeGateway{msgs: msgs}, store).RunCycle(context.Background())

	if summary.Saved != 4 || summary.Skipped != 1 || summary.Received != 5 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := store.FindEmailLogByMailboxID(context.Background(), "<m3@vendor>"); !errors.Is(err, ErrNotFound) {
		t.Errorf("failed message should not be logged, got %v", err)
	}
}

// panicRouter blows up on one body
type panicRouter struct{}

func (panicRouter) Route(ctx context.Context, body string, docs []functions.Document) (*functions.RouteResult, error) {
	if strings.Contains(body, "explode") {
		panic("router exploded")
	}
	return nil, functions.ErrNothingToExtract
}

func TestRunCycleRecoversFromPanics(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequest(t, store, "rv-1", "v@vendor.example")

	gw := &fakeGateway{msgs: []mailbox.RawMessage{
		reply("<p1@vendor>", "explode Ref-ID:rv-1"),
		reply("<p2@vendor>", "fine Ref-ID:rv-1"),
	}}
	svc := NewSyncService(gw, store, panicRouter{}, nil, NewLogService(db), SyncOptions{})
	summary := svc.RunCycle(context.Background())

	if summary != (SyncSummary{Received: 2, Saved: 1, Skipped: 1}) {
		t.Fatalf("summary = %+v", summary)
	}
	var failures int64
	db.Model(&models.Log{}).Where("level = ?", string(models.LogLevelError)).Count(&failures)
	if failures != 1 {
		t.Errorf("expected one failure row, got %d", failures)
	}
}

func TestRunCycleFetchErrorYieldsEmptySummary(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{err: mailbox.ErrConnectionFailed}
	summary := newTestSync(t, db, gw, NewGormStore(db)).RunCycle(context.Background())
	if summary != (SyncSummary{}) {
		t.Errorf("summary = %+v", summary)
	}
}

// busyLock is always held elsewhere
type busyLock struct{}

func (busyLock) Acquire(ctx context.Context) (func(), bool, error) { return nil, false, nil }

func TestRunCycleRespectsForeignLease(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{msgs: []mailbox.RawMessage{reply("<x@v>", "Ref-ID:rv-1")}}
	summary := newTestSync(t, db, gw, NewGormStore(db)).WithLock(busyLock{}).RunCycle(context.Background())
	if summary != (SyncSummary{}) || gw.calls != 0 {
		t.Errorf("cycle should not fetch while the lease is held: %+v calls=%d", summary, gw.calls)
	}
}

func TestRunCycleStopsBetweenMessagesOnCancel(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	seedRequest(t, store, "rv-1", "v@vendor.example")
	gw := &fakeGateway{msgs: []mailbox.RawMessage{reply("<c1@v>", "Ref-ID:rv-1"), reply("<c2@v>", "Ref-ID:rv-1")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := newTestSync(t, db, gw, store).RunCycle(ctx)
	if summary.Received != 2 || summary.Saved != 0 {
		t.Errorf("cancelled cycle should process nothing: %+v", summary)
	}
}
