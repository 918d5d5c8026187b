package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailGateway reads the inbox through the Gmail REST API
type GmailGateway struct {
	srv     *gmail.Service
	timeout time.Duration // per API call
}

// NewGmailGateway authorizes with the configured refresh token
func NewGmailGateway(ctx context.Context, cfg config.MailboxConfig) (*GmailGateway, error) {
	ts, err := googleTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultMailTimeout
	}
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = timeout
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create Gmail service: %v", ErrConnectionFailed, err)
	}
	return &GmailGateway{srv: srv, timeout: timeout}, nil
}

// NewGmailGatewayWithService wraps an existing service
func NewGmailGatewayWithService(srv *gmail.Service) *GmailGateway {
	return &GmailGateway{srv: srv, timeout: config.DefaultMailTimeout}
}

// WithCallTimeout changes the bound on each API call
func (g *GmailGateway) WithCallTimeout(d time.Duration) *GmailGateway {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// Fetch lists inbox messages newer than window and downloads them in RFC 5322 form
func (g *GmailGateway) Fetch(ctx context.Context, window time.Duration, includeRead bool) ([]RawMessage, error) {
	now := time.Now()
	query := searchQuery(now, window, includeRead)

	listCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var ids []string
	err := g.srv.Users.Messages.List(gmailUser).
		LabelIds("INBOX").
		Q(query).
		MaxResults(100).
		Pages(listCtx, func(page *gmail.ListMessagesResponse) error {
			for _, m := range page.Messages {
				ids = append(ids, m.Id)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrFetchFailed, err)
	}

	// The API lists newest first
	out := make([]RawMessage, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := g.get(ctx, ids[i])
		if err != nil {
			logger.Warn(ctx, "gmail message download failed", "gmail_id", ids[i], "error", err)
			continue
		}
		raw, ok := decodeRaw(msg.Raw)
		if !ok {
			logger.Warn(ctx, "gmail message not decodable", "gmail_id", ids[i])
			continue
		}
		received := time.UnixMilli(msg.InternalDate)
		if !within(received, now, window) {
			continue
		}
		out = append(out, rawFromGmail(msg.Id, received, raw))
	}
	return out, nil
}

func (g *GmailGateway) get(ctx context.Context, id string) (*gmail.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.srv.Users.Messages.Get(gmailUser, id).Format("raw").Context(ctx).Do()
}

// searchQuery builds the Gmail search expression for the window
func searchQuery(now time.Time, window time.Duration, includeRead bool) string {
	var parts []string
	if window > 0 {
		parts = append(parts, fmt.Sprintf("after:%d", now.Add(-window).Unix()))
	}
	if !includeRead {
		parts = append(parts, "is:unread")
	}
	return strings.Join(parts, " ")
}

func decodeRaw(s string) ([]byte, bool) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, true
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	return b, err == nil
}

func rawFromGmail(gmailID string, received time.Time, raw []byte) RawMessage {
	parsed := parseRaw(raw)
	msgID := parsed.messageID
	if msgID == "" {
		msgID = "gmail:" + gmailID
	}
	subject, from := parsed.subject, parsed.from
	return RawMessage{
		MailboxMessageID: msgID,
		Subject:          subject,
		From:             from,
		Date:             received,
		Body:             parsed.body(),
		Attachments:      parsed.attachments,
	}
}
