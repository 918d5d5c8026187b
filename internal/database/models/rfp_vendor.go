package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RFPVendor links one RFP to one vendor; its ID is the tracking token carried as Ref-ID in outbound mail
type RFPVendor struct {
	ID          string        `gorm:"primaryKey;size:64" json:"id"`
	RFPID       string        `gorm:"index;size:64;not null" json:"rfp_id"`
	VendorID    string        `gorm:"index;size:64;not null" json:"vendor_id"`
	VendorEmail string        `gorm:"size:255" json:"vendor_email"`
	Status      RequestStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RequestStatus is the lifecycle state of an outstanding request
type RequestStatus string

const (
	StatusPending RequestStatus = "pending"
	StatusSent    RequestStatus = "sent"
	StatusReplied RequestStatus = "replied"
	StatusExpired RequestStatus = "expired"
)

// IsValid checks if the status is one of the known states
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusReplied, StatusExpired:
		return true
	}
	return false
}

// BeforeCreate assigns a uuid token when the caller did not
func (rv *RFPVendor) BeforeCreate(tx *gorm.DB) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	return nil
}
