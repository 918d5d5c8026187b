package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api/middleware"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKey = "test-api-key"

type stubTrigger struct {
	summary services.SyncSummary
	calls   int
}

func (s *stubTrigger) RunNow(ctx context.Context) services.SyncSummary {
	s.calls++
	return s.summary
}

func (s *stubTrigger) LastRun() (services.SyncSummary, time.Time) {
	if s.calls == 0 {
		return services.SyncSummary{}, time.Time{}
	}
	return s.summary, time.Unix(1700000000, 0)
}

func (s *stubTrigger) IsRunning() bool { return true }

type stubSender struct {
	err error
}

func (s *stubSender) SendRequest(ctx context.Context, requestID, subject, html string) (*models.EmailLog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.EmailLog{MailboxMessageID: "<sent-1@rfp.example>", RFPVendorID: &requestID, Direction: models.DirectionOutgoing}, nil
}

type testEnv struct {
	router  *gin.Engine
	store   *services.GormStore
	files   *storage.LocalStore
	logs    *services.LogService
	trigger *stubTrigger
	sender  *stubSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api_test.db")), &gorm.Config{
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
	})

	keys, err := middleware.NewAPIKeyManager(t.TempDir(), testKey)
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		store:   services.NewGormStore(db),
		files:   storage.NewLocalStore(t.TempDir()),
		logs:    services.NewLogServiceWithLevel(db, "debug"),
		trigger: &stubTrigger{summary: services.SyncSummary{Received: 3, Saved: 2, Skipped: 1, ProposalsStored: 2}},
		sender:  &stubSender{},
	}
	env.router = SetupRouter(Deps{
		Store:    env.store,
		Files:    env.files,
		Logs:     env.logs,
		Sync:     env.trigger,
		Outbound: env.sender,
		APIKeys:  keys,
	})
	return env
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, testKey)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad json %q: %v", w.Body.String(), err)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("bad data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestHealthNeedsNoKey(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header missing")
	}

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proposals", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated api call: status %d", w.Code)
	}
}

func TestManualSyncReturnsSummary(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var summary services.SyncSummary
	decode(t, w, &summary)
	if summary != env.trigger.summary || env.trigger.calls != 1 {
		t.Errorf("summary %+v, calls %d", summary, env.trigger.calls)
	}

	var status struct {
		SchedulerRunning bool   `json:"scheduler_running"`
		LastRunAt        *int64 `json:"last_run_at"`
	}
	decode(t, env.do(http.MethodGet, "/api/sync/status", nil), &status)
	if !status.SchedulerRunning || status.LastRunAt == nil {
		t.Errorf("status %+v", status)
	}
}

func TestRequestLifecycle(t *testing.T) {
	env := newTestEnv(t)

	create := map[string]string{"id": "rv-1", "rfp_id": "rfp-9", "vendor_id": "v-1", "vendor_email": "sales@vendor.example"}
	if w := env.do(http.MethodPost, "/api/requests", create); w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodPost, "/api/requests", create); w.Code != http.StatusConflict {
		t.Errorf("duplicate create status %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/requests", map[string]string{"rfp_id": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid create status %d", w.Code)
	}

	var rv models.RFPVendor
	decode(t, env.do(http.MethodGet, "/api/requests/rv-1", nil), &rv)
	if rv.Status != models.StatusPending || rv.RFPID != "rfp-9" {
		t.Errorf("request %+v", rv)
	}
	if w := env.do(http.MethodGet, "/api/requests/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing request status %d", w.Code)
	}

	var list struct {
		Requests []models.RFPVendor `json:"requests"`
	}
	decode(t, env.do(http.MethodGet, "/api/requests?rfp_id=rfp-9", nil), &list)
	if len(list.Requests) != 1 {
		t.Errorf("requests %+v", list.Requests)
	}
}

func TestSendRequestMapsErrors(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"subject": "RFP: laptops", "html": "<p>Please quote</p>"}

	var sent struct {
		MessageID string `json:"message_id"`
	}
	w := env.do(http.MethodPost, "/api/requests/rv-1/send", body)
	decode(t, w, &sent)
	if w.Code != http.StatusOK || sent.MessageID != "<sent-1@rfp.example>" {
		t.Fatalf("send status %d body %s", w.Code, w.Body.String())
	}

	cases := []struct {
		err  error
		code int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: replied", services.ErrRequestClosed), http.StatusConflict},
		{services.ErrNoRecipient, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		env.sender.err = tc.err
		if w := env.do(http.MethodPost, "/api/requests/rv-1/send", body); w.Code != tc.code {
			t.Errorf("%v: status %d, want %d", tc.err, w.Code, tc.code)
		}
	}

	env.sender.err = nil
	if w := env.do(http.MethodPost, "/api/requests/rv-1/send", map[string]string{"subject": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing html: status %d", w.Code)
	}
}

func TestListsFilterByRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"rv-1", "rv-2"} {
		if err := env.store.CreateRFPVendor(ctx, &models.RFPVendor{ID: id, RFPID: "rfp-1", VendorID: id}); err != nil {
			t.Fatal(err)
		}
	}
	for i, id := range []string{"rv-1", "rv-1", "rv-2"} {
		ref := id
		entry := &models.EmailLog{MailboxMessageID: fmt.Sprintf("<m%d@vendor>", i), RFPVendorID: &ref, Direction: models.DirectionIncoming}
		if err := env.store.CreateEmailLog(ctx, entry); err != nil {
			t.Fatal(err)
		}
		if err := env.store.CreateProposal(ctx, &models.Proposal{RFPVendorID: id, EmailLogID: entry.ID, ExtractedBy: "fallback"}); err != nil {
			t.Fatal(err)
		}
	}

	var logs struct {
		Total     int64              `json:"total"`
		EmailLogs []models.EmailLog `json:"email_logs"`
	}
	decode(t, env.do(http.MethodGet, "/api/email-logs/request/rv-1", nil), &logs)
	if logs.Total != 2 || len(logs.EmailLogs) != 2 {
		t.Errorf("email logs for rv-1: %+v", logs)
	}

	var proposals struct {
		Total     int64             `json:"total"`
		Proposals []models.Proposal `json:"proposals"`
	}
	decode(t, env.do(http.MethodGet, "/api/proposals", nil), &proposals)
	if proposals.Total != 3 {
		t.Errorf("all proposals total %d", proposals.Total)
	}
	decode(t, env.do(http.MethodGet, "/api/proposals/request/rv-2", nil), &proposals)
	if proposals.Total != 1 || proposals.Proposals[0].RFPVendorID != "rv-2" {
		t.Errorf("proposals for rv-2: %+v", proposals)
	}

	var empty struct {
		Proposals []models.Proposal `json:"proposals"`
	}
	w := env.do(http.MethodGet, "/api/proposals/request/none", nil)
	decode(t, w, &empty)
	if empty.Proposals == nil {
		t.Errorf("empty list should serialize as [], got %s", w.Body.String())
	}
}

func TestProperty_PagingIsClamped(t *testing.T) {
	env := newTestEnv(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("page and limit are always usable", prop.ForAll(
		func(page, limit int) bool {
			var out struct {
				Page  int `json:"page"`
				Limit int `json:"limit"`
			}
			w := env.do(http.MethodGet, fmt.Sprintf("/api/email-logs?page=%d&limit=%d", page, limit), nil)
			decode(t, w, &out)
			return w.Code == http.StatusOK && out.Page >= 1 && out.Limit >= 1 && out.Limit <= 200
		},
		gen.IntRange(-5, 50),
		gen.IntRange(-10, 500),
	))

	properties.TestingRun(t)
}

func TestDownloadAttachment(t *testing.T) {
	env := newTestEnv(t)
	ref, err := env.files.Save(context.Background(), "<m1@vendor>", 0, "quote.txt", []byte("Total: $100"))
	if err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodGet, "/api/attachments?location="+url.QueryEscape(ref.Location), nil)
	if w.Code != http.StatusOK || w.Body.String() != "Total: $100" {
		t.Fatalf("download status %d body %q", w.Code, w.Body.String())
	}

	if w := env.do(http.MethodGet, "/api/attachments?location=/etc/passwd", nil); w.Code != http.StatusBadRequest {
		t.Errorf("outside location: status %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/attachments", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing location: status %d", w.Code)
	}
}

func TestListLogs(t *testing.T) {
	env := newTestEnv(t)
	env.logs.LogInfo(models.LogModuleSync, "cycle", "Sync cycle finished", nil)
	env.logs.LogError(models.LogModuleSync, "message", "Message failed", nil)

	var out struct {
		Total int64        `json:"total"`
		Logs  []models.Log `json:"logs"`
	}
	decode(t, env.do(http.MethodGet, "/api/logs?level=error&module=sync", nil), &out)
	if out.Total != 1 || out.Logs[0].Message != "Message failed" {
		t.Errorf("filtered logs %+v", out)
	}

	if w := env.do(http.MethodGet, "/api/logs?start=yesterday", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad start: status %d", w.Code)
	}
}
