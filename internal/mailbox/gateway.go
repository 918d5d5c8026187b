package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
)

// Mailbox errors
var (
	ErrConnectionFailed    = errors.New("mailbox connection failed")
	ErrFetchFailed         = errors.New("mailbox fetch failed")
	ErrNotConfigured       = errors.New("mailbox not configured")
	ErrUnsupportedProvider = errors.New("unsupported mailbox provider")
)

// Attachment is a decoded attachment part of a fetched message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// RawMessage is one inbound message as returned by a Gateway. It is never persisted as-is.
type RawMessage struct {
	MailboxMessageID string
	Subject          string
	From             string
	Body             string
	Date             time.Time
	Attachments      []Attachment
}

// Gateway fetches recent messages from the single configured mailbox.
// Fetch may be called repeatedly with overlapping windows; callers dedup.
type Gateway interface {
	Fetch(ctx context.Context, window time.Duration, includeRead bool) ([]RawMessage, error)
}

// New builds the gateway selected by cfg.Provider
func New(ctx context.Context, cfg config.MailboxConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "imap":
		if cfg.Host == "" || cfg.Username == "" {
			return nil, ErrNotConfigured
		}
		return NewIMAPGateway(cfg), nil
	case "gmail":
		return NewGmailGateway(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// within reports whether t falls inside the window ending at now.
// A zero time is kept, the server already filtered by date.
func within(t, now time.Time, window time.Duration) bool {
	if t.IsZero() || window <= 0 {
		return true
	}
	return !t.Before(now.Add(-window))
}

// Unavailable is the gateway used when the mailbox could not be set up.
// Every fetch fails with Err, so cycles still run and record the problem.
type Unavailable struct {
	Err error
}

// Fetch implements Gateway
func (u Unavailable) Fetch(ctx context.Context, window time.Duration, includeRead bool) ([]RawMessage, error) {
	return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, u.Err)
}
