package mailbox

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

// parsedContent accumulates the parts found while walking a MIME tree
type parsedContent struct {
	messageID   string
	subject     string
	from        string
	text        string
	html        string
	attachments []Attachment
}

// body prefers the HTML part and falls back to plain text
func (p *parsedContent) body() string {
	if strings.TrimSpace(p.html) != "" {
		return p.html
	}
	return p.text
}

// parseRaw decodes an RFC 5322 message. Unknown charsets and broken MIME degrade
// to reading the raw body as plain text.
func parseRaw(raw []byte) *parsedContent {
	p := &parsedContent{}
	if len(raw) == 0 {
		return p
	}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		m, err := mail.ReadMessage(bytes.NewReader(raw))
		if err != nil {
			return p
		}
		p.messageID = strings.TrimSpace(m.Header.Get("Message-ID"))
		dec := new(mime.WordDecoder)
		p.subject, _ = dec.DecodeHeader(m.Header.Get("Subject"))
		p.from, _ = dec.DecodeHeader(m.Header.Get("From"))
		b, _ := io.ReadAll(m.Body)
		p.text = string(b)
		return p
	}

	p.messageID = strings.TrimSpace(entity.Header.Get("Message-Id"))
	if p.subject, err = entity.Header.Text("Subject"); err != nil {
		p.subject = entity.Header.Get("Subject")
	}
	if p.from, err = entity.Header.Text("From"); err != nil {
		p.from = entity.Header.Get("From")
	}
	parseEntity(entity, p)
	return p
}

// parseEntity walks the MIME tree. The first text/plain and text/html parts become
// the bodies; everything else with content is an attachment.
func parseEntity(entity *message.Entity, p *parsedContent) {
	mediaType, params, _ := entity.Header.ContentType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			parseEntity(part, p)
		}
		return
	case mediaType == "text/plain" && p.text == "" && !isAttachmentPart(entity):
		b, _ := io.ReadAll(entity.Body)
		p.text = string(b)
		return
	case mediaType == "text/html" && p.html == "" && !isAttachmentPart(entity):
		b, _ := io.ReadAll(entity.Body)
		p.html = string(b)
		return
	case mediaType == "" && p.text == "":
		b, _ := io.ReadAll(entity.Body)
		p.text = string(b)
		return
	}

	filename, isAttachment := attachmentName(entity, params)
	if !isAttachment && !strings.HasPrefix(mediaType, "text/") && mediaType != "" {
		isAttachment = true
	}
	if !isAttachment {
		return
	}

	content, _ := io.ReadAll(entity.Body)
	if len(content) == 0 {
		return
	}
	if filename == "" {
		filename = defaultFilename(mediaType)
	}
	p.attachments = append(p.attachments, Attachment{
		Filename:    filename,
		ContentType: mediaType,
		Content:     content,
	})
}

func isAttachmentPart(entity *message.Entity) bool {
	disp, _, err := entity.Header.ContentDisposition()
	return err == nil && disp == "attachment"
}

// attachmentName reads the filename from Content-Disposition or the Content-Type name
// parameter, decoding RFC 2047 words.
func attachmentName(entity *message.Entity, params map[string]string) (string, bool) {
	var filename string
	isAttachment := false

	if disp, dispParams, err := entity.Header.ContentDisposition(); err == nil {
		if disp == "attachment" || (disp == "inline" && dispParams["filename"] != "") {
			isAttachment = true
			filename = dispParams["filename"]
		}
	}
	if params["name"] != "" {
		isAttachment = true
		if filename == "" {
			filename = params["name"]
		}
	}
	if filename != "" {
		dec := new(mime.WordDecoder)
		if decoded, err := dec.DecodeHeader(filename); err == nil {
			filename = decoded
		}
	}
	return filename, isAttachment
}

func defaultFilename(mediaType string) string {
	ext := ".bin"
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		ext = "." + strings.TrimPrefix(mediaType, "image/")
		if ext == ".jpeg" {
			ext = ".jpg"
		}
	case mediaType == "application/pdf":
		ext = ".pdf"
	case strings.HasPrefix(mediaType, "text/"):
		ext = ".txt"
	}
	return "attachment" + ext
}
