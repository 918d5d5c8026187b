package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/emersion/go-imap"
	id "github.com/emersion/go-imap-id"
	"github.com/emersion/go-imap/client"
	"golang.org/x/oauth2"
)

const (
	dialTimeout = 10 * time.Second
	batchSize   = 10
	inbox       = "INBOX"
)

// IMAPGateway reads the INBOX of one IMAP account
type IMAPGateway struct {
	cfg config.MailboxConfig

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// NewIMAPGateway creates a gateway for the configured account
func NewIMAPGateway(cfg config.MailboxConfig) *IMAPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultMailTimeout
	}
	return &IMAPGateway{cfg: cfg}
}

// connect dials, identifies and authenticates
func (g *IMAPGateway) connect(ctx context.Context) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error
	if g.cfg.UseSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: g.cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.Timeout = g.cfg.Timeout

	// Some providers refuse LOGIN until the client identifies itself
	if ok, _ := c.Support("ID"); ok {
		if _, err := id.NewClient(c).ID(id.ID{
			id.FieldName:    "rfp-replies",
			id.FieldVersion: "1.0.0",
		}); err != nil {
			logger.Debug(ctx, "imap ID command rejected", "error", err)
		}
	}

	if strings.EqualFold(g.cfg.AuthType, "oauth2") {
		token, err := g.accessToken(ctx)
		if err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		if err := c.Authenticate(NewXOAuth2Client(g.cfg.Username, token)); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: XOAUTH2 authentication failed: %v", ErrConnectionFailed, err)
		}
		return c, nil
	}

	if err := c.Login(g.cfg.Username, g.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrConnectionFailed, err)
	}
	return c, nil
}

func (g *IMAPGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tokens == nil {
		ts, err := googleTokenSource(context.Background(), g.cfg)
		if err != nil {
			return "", err
		}
		g.tokens = oauth2.ReuseTokenSource(nil, ts)
	}
	tok, err := g.tokens.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Fetch returns the INBOX messages received within window, oldest first.
// Bodies are fetched with BODY.PEEK so the read state is left untouched.
func (g *IMAPGateway) Fetch(ctx context.Context, window time.Duration, includeRead bool) ([]RawMessage, error) {
	c, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	// Unblock pending commands when the caller gives up
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Terminate()
		case <-stop:
		}
	}()

	mbox, err := c.Select(inbox, true)
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %v", ErrFetchFailed, inbox, err)
	}
	if mbox.Messages == 0 {
		return []RawMessage{}, nil
	}

	now := time.Now()
	criteria := imap.NewSearchCriteria()
	if window > 0 {
		// SINCE has day granularity; the exact cut happens on INTERNALDATE below
		since := now.Add(-window).UTC()
		criteria.Since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	}
	if !includeRead {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrFetchFailed, err)
	}
	if len(uids) == 0 {
		return []RawMessage{}, nil
	}

	metas, err := g.fetchEnvelopes(ctx, c, uids)
	if err != nil {
		return nil, err
	}

	var wanted []*imap.Message
	for _, m := range metas {
		if within(m.InternalDate, now, window) {
			wanted = append(wanted, m)
		}
	}
	if len(wanted) == 0 {
		return []RawMessage{}, nil
	}

	bodies, err := g.fetchBodies(ctx, c, wanted)
	if err != nil {
		return nil, err
	}

	out := make([]RawMessage, 0, len(wanted))
	for _, m := range wanted {
		out = append(out, buildRawMessage(m, bodies[m.Uid]))
	}
	logger.Debug(ctx, "imap fetch completed", "searched", len(uids), "in_window", len(out))
	return out, nil
}

func (g *IMAPGateway) fetchEnvelopes(ctx context.Context, c *client.Client, uids []uint32) ([]*imap.Message, error) {
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchInternalDate}
	var metas []*imap.Message

	for i := 0; i < len(uids); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + batchSize
		if end > len(uids) {
			end = len(uids)
		}
		set := new(imap.SeqSet)
		set.AddNum(uids[i:end]...)

		messages := make(chan *imap.Message, batchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(set, items, messages)
		}()
		for msg := range messages {
			if msg != nil && msg.Envelope != nil {
				metas = append(metas, msg)
			}
		}
		if err := <-done; err != nil {
			return nil, fmt.Errorf("%w: envelopes: %v", ErrFetchFailed, err)
		}
	}
	return metas, nil
}

func (g *IMAPGateway) fetchBodies(ctx context.Context, c *client.Client, metas []*imap.Message) (map[uint32][]byte, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	bodies := make(map[uint32][]byte, len(metas))

	for i := 0; i < len(metas); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + batchSize
		if end > len(metas) {
			end = len(metas)
		}
		set := new(imap.SeqSet)
		for _, m := range metas[i:end] {
			set.AddNum(m.Uid)
		}

		messages := make(chan *imap.Message, batchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(set, items, messages)
		}()
		for msg := range messages {
			if msg == nil {
				continue
			}
			if literal := msg.GetBody(section); literal != nil {
				if content, err := io.ReadAll(literal); err == nil && len(content) > 0 {
					bodies[msg.Uid] = content
				}
			}
		}
		if err := <-done; err != nil {
			logger.Warn(ctx, "imap body fetch incomplete", "error", err)
		}
	}
	return bodies, nil
}

// buildRawMessage combines the envelope with the parsed body. The mailbox id is the
// Message-ID header, falling back to uid:<UID>.
func buildRawMessage(meta *imap.Message, raw []byte) RawMessage {
	parsed := parseRaw(raw)

	msgID := strings.TrimSpace(meta.Envelope.MessageId)
	if msgID == "" {
		msgID = parsed.messageID
	}
	if msgID == "" {
		msgID = fmt.Sprintf("uid:%d", meta.Uid)
	}

	msg := RawMessage{
		MailboxMessageID: msgID,
		Subject:          meta.Envelope.Subject,
		Date:             meta.InternalDate,
		Body:             parsed.body(),
		Attachments:      parsed.attachments,
	}
	if msg.Date.IsZero() {
		msg.Date = meta.Envelope.Date
	}
	if len(meta.Envelope.From) > 0 {
		msg.From = formatAddress(meta.Envelope.From[0])
	}
	return msg
}

// formatAddress formats an IMAP address to a string
func formatAddress(addr *imap.Address) string {
	if addr == nil {
		return ""
	}
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}
