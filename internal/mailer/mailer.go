package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Mailer errors
var (
	ErrNotConfigured     = errors.New("smtp not configured")
	ErrConnectionFailed  = errors.New("smtp connection failed")
	ErrSendFailed        = errors.New("email send failed")
	ErrInvalidRecipients = errors.New("no recipients")
)

// Message is one outbound email. HTML is optional; Text is always sent.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers outbound mail and returns the Message-ID it was sent with
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SMTPSender sends through a single SMTP relay
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultMailTimeout
	}
	return &SMTPSender{cfg: cfg}
}

// Send builds the MIME message and delivers it
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return "", ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return "", ErrInvalidRecipients
	}

	messageID := generateMessageID(s.cfg.From)
	content, err := buildContent(s.cfg.From, msg, messageID, time.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if err := s.deliver(ctx, msg.To, content); err != nil {
		return "", err
	}
	return "<" + messageID + ">", nil
}

// buildContent renders a multipart/alternative message when HTML is present
func buildContent(from string, msg Message, messageID string, date time.Time) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		fromAddr = &mail.Address{Address: from}
	}
	to := make([]*mail.Address, 0, len(msg.To))
	for _, rcpt := range msg.To {
		to = append(to, &mail.Address{Address: rcpt})
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	h.SetMessageID(messageID)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(tw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "base64")
	w, err := tw.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return err
	}
	return w.Close()
}

// Verify connects and authenticates without sending anything
func (s *SMTPSender) Verify(ctx context.Context) error {
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	client.Quit()
	return nil
}

// dial opens an authenticated session: implicit TLS when UseSSL, otherwise
// plain with opportunistic STARTTLS
func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	var conn net.Conn
	var err error
	if s.cfg.UseSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if !s.cfg.UseSSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				client.Close()
				return nil, fmt.Errorf("%w: starttls: %v", ErrConnectionFailed, err)
			}
		}
	}

	if s.cfg.Username != "" {
		if err := s.authenticate(client); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

// deliver runs MAIL, RCPT and DATA over a fresh session
func (s *SMTPSender) deliver(ctx context.Context, recipients []string, content []byte) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(bareAddress(s.cfg.From)); err != nil {
		return fmt.Errorf("%w: MAIL FROM: %v", ErrSendFailed, err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("%w: RCPT TO %s: %v", ErrSendFailed, rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA: %v", ErrSendFailed, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("%w: write: %v", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	// The message is accepted; some servers answer QUIT badly
	client.Quit()
	return nil
}

// authenticate tries PLAIN first and falls back to LOGIN
func (s *SMTPSender) authenticate(client *smtp.Client) error {
	err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host))
	if err == nil {
		return nil
	}
	if err2 := client.Auth(newLoginAuth(s.cfg.Username, s.cfg.Password)); err2 != nil {
		return fmt.Errorf("%w: authentication failed (tried PLAIN and LOGIN): %v", ErrConnectionFailed, err)
	}
	return nil
}

// loginAuth implements the LOGIN mechanism some providers still require
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	prompt := strings.ToLower(strings.TrimSuffix(string(fromServer), ":"))
	if decoded, err := base64.StdEncoding.DecodeString(string(fromServer)); err == nil {
		prompt = strings.ToLower(strings.TrimSuffix(string(decoded), ":"))
	}
	switch prompt {
	case "username":
		return []byte(a.username), nil
	case "password":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
}

// generateMessageID returns an id without angle brackets, in the sender's domain
func generateMessageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(bareAddress(from), "@"); i >= 0 {
		domain = bareAddress(from)[i+1:]
	}
	return fmt.Sprintf("%d.%s@%s", time.Now().UnixNano(), uuid.NewString()[:8], domain)
}

func bareAddress(s string) string {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(s)
}
