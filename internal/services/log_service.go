package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"gorm.io/gorm"
)

// LogService writes and queries audit log rows. The minimum level can be
// changed while the service is in use (config reload).
type LogService struct {
	db       *gorm.DB
	minLevel atomic.Int32
}

// levelOrder ranks levels from least to most severe
var levelOrder = []models.LogLevel{
	models.LogLevelDebug,
	models.LogLevelInfo,
	models.LogLevelWarn,
	models.LogLevelError,
}

func rank(level models.LogLevel) int32 {
	for i, l := range levelOrder {
		if l == level {
			return int32(i)
		}
	}
	return 1
}

// NewLogService creates a LogService recording INFO and above
func NewLogService(db *gorm.DB) *LogService {
	return NewLogServiceWithLevel(db, "info")
}

// NewLogServiceWithLevel creates a LogService with the given minimum level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	s := &LogService{db: db}
	s.SetLogLevel(level)
	return s
}

func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return models.LogLevelDebug
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum level; unknown names mean INFO
func (s *LogService) SetLogLevel(level string) {
	s.minLevel.Store(rank(parseLogLevel(level)))
}

// GetLogLevel returns the current minimum level
func (s *LogService) GetLogLevel() models.LogLevel {
	return levelOrder[s.minLevel.Load()]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if s == nil || rank(entry.Level) < s.minLevel.Load() {
		return nil
	}

	row := &models.Log{
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
	}
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			raw = []byte("{}")
		}
		row.Details = string(raw)
	}
	return s.db.Create(row).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{Level: models.LogLevelInfo, Module: module, Action: action, Message: message, Details: details})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{Level: models.LogLevelWarn, Module: module, Action: action, Message: message, Details: details})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{Level: models.LogLevelError, Module: module, Action: action, Message: message, Details: details})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{Level: models.LogLevelDebug, Module: module, Action: action, Message: message, Details: details})
}

// LogCycle records the outcome of one sync cycle
func (s *LogService) LogCycle(cycleID string, summary SyncSummary, duration time.Duration, fetchErr error) error {
	details := map[string]interface{}{
		"cycle_id":         cycleID,
		"received":         summary.Received,
		"saved":            summary.Saved,
		"skipped":          summary.Skipped,
		"duplicates":       summary.Duplicates,
		"proposals_stored": summary.ProposalsStored,
		"duration_ms":      duration.Milliseconds(),
	}
	if fetchErr != nil {
		details["error"] = fetchErr.Error()
		return s.LogWarn(models.LogModuleSync, "cycle", "Sync cycle aborted: mailbox fetch failed", details)
	}
	return s.LogInfo(models.LogModuleSync, "cycle", "Sync cycle completed", details)
}

// MessageFailureDetails describes a message that could not be ingested
type MessageFailureDetails struct {
	MailboxMessageID string `json:"mailbox_message_id"`
	RFPVendorID      string `json:"rfp_vendor_id,omitempty"`
	Step             string `json:"step"`
	ErrorMsg         string `json:"error_msg"`
}

// LogMessageFailure records a per-message failure inside a cycle
func (s *LogService) LogMessageFailure(details MessageFailureDetails) error {
	return s.LogError(models.LogModuleSync, details.Step, "Message ingestion step failed", details)
}

// LogEmailSend logs an outbound request
func (s *LogService) LogEmailSend(requestID, to, messageID string, err error) error {
	details := map[string]interface{}{
		"rfp_vendor_id": requestID,
		"to":            to,
		"status":        "sent",
	}
	if err != nil {
		details["status"] = "failed"
		details["error_msg"] = err.Error()
		return s.LogError(models.LogModuleOutbound, "send", "Failed to send request", details)
	}
	details["message_id"] = messageID
	return s.LogInfo(models.LogModuleOutbound, "send", "Request sent", details)
}

// LogQuery filters audit rows. Empty fields match everything.
type LogQuery struct {
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult is one page of audit rows and the total match count
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters, newest first
func (s *LogService) QueryLogs(ctx context.Context, query LogQuery) (*LogQueryResult, error) {
	db := s.db.WithContext(ctx).Model(&models.Log{})

	for column, value := range map[string]string{
		"level":  strings.ToUpper(query.Level),
		"module": query.Module,
		"action": query.Action,
	} {
		if value != "" {
			db = db.Where(column+" = ?", value)
		}
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", *query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", *query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	page := ListQuery{Page: query.Page, Limit: query.Limit}.Normalized()
	var logs []models.Log
	err := db.Order("created_at DESC").Order("id DESC").
		Offset((page.Page - 1) * page.Limit).Limit(page.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return &LogQueryResult{Total: total, Logs: logs}, nil
}
