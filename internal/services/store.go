package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"gorm.io/gorm"
)

// Store errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrInvalidStatus = errors.New("invalid request status")
)

// ListQuery pages through records, optionally for one request
type ListQuery struct {
	RFPVendorID string
	Page        int
	Limit       int
}

// Normalized fills in paging defaults
func (q ListQuery) Normalized() ListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	return q
}

// Store is the persistence gateway used by the sync cycle, outbound flow and API
type Store interface {
	FindEmailLogByMailboxID(ctx context.Context, mailboxID string) (*models.EmailLog, error)
	FindRFPVendor(ctx context.Context, id string) (*models.RFPVendor, error)
	CreateEmailLog(ctx context.Context, entry *models.EmailLog) error
	UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, sentAt *time.Time) error
	MarkReplied(ctx context.Context, id string) (bool, error)
	CreateProposal(ctx context.Context, p *models.Proposal) error

	CreateRFPVendor(ctx context.Context, rv *models.RFPVendor) error
	ListRFPVendors(ctx context.Context, rfpID string) ([]models.RFPVendor, error)
	ListEmailLogs(ctx context.Context, q ListQuery) ([]models.EmailLog, int64, error)
	ListProposals(ctx context.Context, q ListQuery) ([]models.Proposal, int64, error)
}

// GormStore implements Store on gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindEmailLogByMailboxID returns ErrNotFound when the message was never stored
func (s *GormStore) FindEmailLogByMailboxID(ctx context.Context, mailboxID string) (*models.EmailLog, error) {
	var entry models.EmailLog
	if err := s.db.WithContext(ctx).Where("mailbox_message_id = ?", mailboxID).First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// FindRFPVendor is a point lookup by tracking token
func (s *GormStore) FindRFPVendor(ctx context.Context, id string) (*models.RFPVendor, error) {
	var rv models.RFPVendor
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

// CreateEmailLog inserts a message log; a second insert of the same mailbox id yields ErrDuplicate
func (s *GormStore) CreateEmailLog(ctx context.Context, entry *models.EmailLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

// UpdateRequestStatus moves a request to status, setting SentAt when given
func (s *GormStore) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, sentAt *time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	updates := map[string]interface{}{"status": status}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	res := s.db.WithContext(ctx).Model(&models.RFPVendor{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReplied moves a sent request to replied. Any other state is left alone and
// reported as unchanged; a missing request is ErrNotFound.
func (s *GormStore) MarkReplied(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.RFPVendor{}).
		Where("id = ? AND status = ?", id, models.StatusSent).
		Update("status", models.StatusReplied)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.FindRFPVendor(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// CreateProposal inserts an extracted proposal
func (s *GormStore) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

// CreateRFPVendor registers an outstanding request
func (s *GormStore) CreateRFPVendor(ctx context.Context, rv *models.RFPVendor) error {
	if rv.Status == "" {
		rv.Status = models.StatusPending
	}
	if !rv.Status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, rv.Status)
	}
	return translate(s.db.WithContext(ctx).Create(rv).Error)
}

// ListRFPVendors lists requests, all of them when rfpID is empty
func (s *GormStore) ListRFPVendors(ctx context.Context, rfpID string) ([]models.RFPVendor, error) {
	db := s.db.WithContext(ctx).Model(&models.RFPVendor{})
	if rfpID != "" {
		db = db.Where("rfp_id = ?", rfpID)
	}
	var out []models.RFPVendor
	if err := db.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListEmailLogs pages through message logs, newest first
func (s *GormStore) ListEmailLogs(ctx context.Context, q ListQuery) ([]models.EmailLog, int64, error) {
	q = q.Normalized()
	db := s.db.WithContext(ctx).Model(&models.EmailLog{})
	if q.RFPVendorID != "" {
		db = db.Where("rfp_vendor_id = ?", q.RFPVendorID)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.EmailLog
	if err := db.Order("created_at DESC").Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListProposals pages through proposals, newest first
func (s *GormStore) ListProposals(ctx context.Context, q ListQuery) ([]models.Proposal, int64, error) {
	q = q.Normalized()
	db := s.db.WithContext(ctx).Model(&models.Proposal{})
	if q.RFPVendorID != "" {
		db = db.Where("rfp_vendor_id = ?", q.RFPVendorID)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Proposal
	if err := db.Order("submitted_at DESC").Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// translate maps driver errors onto the store sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}
