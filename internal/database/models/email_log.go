package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailLog records one physical message seen by the system, inbound or outbound.
// MailboxMessageID is unique; it is the dedup key for the sync cycle.
type EmailLog struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	MailboxMessageID string          `gorm:"uniqueIndex;size:255;not null" json:"mailbox_message_id"`
	RFPVendorID      *string         `gorm:"index;size:64" json:"rfp_vendor_id,omitempty"`
	Direction        Direction       `gorm:"size:10;not null" json:"direction"`
	FromAddr         string          `gorm:"size:255" json:"from"`
	Subject          string          `gorm:"size:500" json:"subject"`
	Body             string          `gorm:"type:text" json:"body"`
	Attachments      []AttachmentRef `gorm:"serializer:json;type:text" json:"attachments"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

// Direction tells whether a message was received or sent
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// AttachmentRef points at a stored attachment
type AttachmentRef struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// BeforeCreate assigns a uuid when the caller did not
func (l *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
