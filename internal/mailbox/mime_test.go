package mailbox

import (
	"strings"
	"testing"
	"time"
)

const multipartReply = "Message-ID: <reply-1@vendor.example>\r\n" +
	"From: Acme Sales <sales@acme.example>\r\n" +
	"Subject: =?utf-8?q?Re:_Laptops_RFP?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain quote Ref-ID:rv-42\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML quote</p><span>Ref-ID:rv-42</span>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf; name=\"quote.pdf\"\r\n" +
	"Content-Disposition: attachment; filename=\"=?utf-8?q?quot=C3=A9.pdf?=\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQK\r\n" +
	"--outer\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"--outer--\r\n"

func TestParseRawPrefersHTMLAndCollectsAttachments(t *testing.T) {
	p := parseRaw([]byte(multipartReply))

	if p.messageID != "<reply-1@vendor.example>" {
		t.Errorf("messageID = %q", p.messageID)
	}
	if p.subject != "Re: Laptops RFP" {
		t.Errorf("subject = %q", p.subject)
	}
	if !strings.Contains(p.body(), "<p>HTML quote</p>") {
		t.Errorf("body should be the html part, got %q", p.body())
	}
	if len(p.attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(p.attachments))
	}
	if p.attachments[0].Filename != "quoté.pdf" || string(p.attachments[0].Content) != "%PDF-1.4\n" {
		t.Errorf("unexpected pdf attachment: %q %q", p.attachments[0].Filename, p.attachments[0].Content)
	}
	if p.attachments[1].Filename != "attachment.png" {
		t.Errorf("unnamed image should get a default name, got %q", p.attachments[1].Filename)
	}
}

func TestParseRawPlainOnly(t *testing.T) {
	raw := "From: a@b.example\r\nSubject: hi\r\n\r\nTotal: 100 USD\r\n"
	p := parseRaw([]byte(raw))
	if p.messageID != "" {
		t.Errorf("messageID should be empty, got %q", p.messageID)
	}
	if !strings.Contains(p.body(), "Total: 100 USD") {
		t.Errorf("plain body lost: %q", p.body())
	}
	if len(p.attachments) != 0 {
		t.Errorf("no attachments expected, got %d", len(p.attachments))
	}
}

func TestParseRawEmpty(t *testing.T) {
	p := parseRaw(nil)
	if p.body() != "" || len(p.attachments) != 0 {
		t.Errorf("empty input should yield empty content")
	}
}

func TestWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !within(now.Add(-4*time.Hour), now, 5*time.Hour) {
		t.Error("4h old message should be in a 5h window")
	}
	if within(now.Add(-6*time.Hour), now, 5*time.Hour) {
		t.Error("6h old message should be outside a 5h window")
	}
	if !within(time.Time{}, now, 5*time.Hour) {
		t.Error("unknown date is kept")
	}
}

func TestSearchQuery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := searchQuery(now, time.Hour, true); got != "after:1699996400" {
		t.Errorf("searchQuery = %q", got)
	}
	if got := searchQuery(now, 0, false); got != "is:unread" {
		t.Errorf("searchQuery = %q", got)
	}
}

func TestXOAuth2InitialResponse(t *testing.T) {
	mech, ir, err := NewXOAuth2Client("buyer@example.com", "tok").Start()
	if err != nil || mech != "XOAUTH2" {
		t.Fatalf("Start() = %q, %v", mech, err)
	}
	if string(ir) != "user=buyer@example.com\x01auth=Bearer tok\x01\x01" {
		t.Errorf("unexpected initial response %q", ir)
	}
}
