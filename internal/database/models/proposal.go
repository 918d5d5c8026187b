package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proposal is the structured reading of one vendor reply
type Proposal struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	RFPVendorID   string          `gorm:"index;size:64;not null" json:"rfp_vendor_id"`
	EmailLogID    string          `gorm:"index;size:36" json:"email_log_id"`
	RawText       string          `gorm:"type:text" json:"raw_text"`
	ExtractedData ExtractedFields `gorm:"serializer:json;type:text" json:"extracted_data"`
	Attachments   []AttachmentRef `gorm:"serializer:json;type:text" json:"attachments"`
	ExtractedBy   string          `gorm:"size:50" json:"extracted_by"` // llm:<provider>, fallback
	Source        string          `gorm:"size:255" json:"source"`      // attachment filename or "body"
	SubmittedAt   time.Time       `gorm:"index" json:"submitted_at"`
}

// SourceBody marks a proposal extracted from the message body
const SourceBody = "body"

// BeforeCreate assigns a uuid when the caller did not
func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = time.Now()
	}
	return nil
}
