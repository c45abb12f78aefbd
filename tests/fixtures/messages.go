package fixtures

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Part is one MIME leaf of a test message
type Part struct {
	ContentType string
	Disposition string // full Content-Disposition value, empty for none
	Body        []byte
	Base64      bool
}

// MessageBuilder assembles raw RFC 5322 messages for tests
type MessageBuilder struct {
	from    string
	to      string
	subject string
	date    string
	text    string
	parts   []Part
}

// NewMessageBuilder creates a plain text message with sensible defaults
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		from:    "billing@acme.com",
		to:      "office@brandocs.hu",
		subject: "Invoice 2024-001",
		date:    "Fri, 01 Mar 2024 10:30:00 +0100",
		text:    "Please find the invoice attached.",
	}
}

// WithFrom sets the raw From header
func (b *MessageBuilder) WithFrom(from string) *MessageBuilder {
	b.from = from
	return b
}

// WithSubject sets the raw Subject header
func (b *MessageBuilder) WithSubject(subject string) *MessageBuilder {
	b.subject = subject
	return b
}

// WithDate sets the raw Date header; empty omits the header
func (b *MessageBuilder) WithDate(date string) *MessageBuilder {
	b.date = date
	return b
}

// WithText sets the text body
func (b *MessageBuilder) WithText(text string) *MessageBuilder {
	b.text = text
	return b
}

// WithPart appends a MIME part, turning the message into multipart/mixed
func (b *MessageBuilder) WithPart(p Part) *MessageBuilder {
	b.parts = append(b.parts, p)
	return b
}

// WithPDFAttachment appends a base64 PDF attachment
func (b *MessageBuilder) WithPDFAttachment(filename string, pdf []byte) *MessageBuilder {
	return b.WithPart(Part{
		ContentType: "application/pdf",
		Disposition: fmt.Sprintf(`attachment; filename="%s"`, filename),
		Body:        pdf,
		Base64:      true,
	})
}

// Build renders the message with CRLF line endings
func (b *MessageBuilder) Build() []byte {
	var sb strings.Builder
	header := func(k, v string) {
		if v != "" {
			sb.WriteString(k + ": " + v + "\r\n")
		}
	}
	header("From", b.from)
	header("To", b.to)
	header("Subject", b.subject)
	header("Date", b.date)
	header("MIME-Version", "1.0")

	if len(b.parts) == 0 {
		header("Content-Type", "text/plain; charset=utf-8")
		sb.WriteString("\r\n")
		sb.WriteString(b.text)
		sb.WriteString("\r\n")
		return []byte(sb.String())
	}

	const boundary = "brandocs-test-boundary"
	header("Content-Type", `multipart/mixed; boundary="`+boundary+`"`)
	sb.WriteString("\r\n")

	sb.WriteString("--" + boundary + "\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(b.text + "\r\n")

	for _, p := range b.parts {
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: " + p.ContentType + "\r\n")
		if p.Disposition != "" {
			sb.WriteString("Content-Disposition: " + p.Disposition + "\r\n")
		}
		if p.Base64 {
			sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
			sb.WriteString(wrap76(base64.StdEncoding.EncodeToString(p.Body)))
		} else {
			sb.WriteString("\r\n")
			sb.Write(p.Body)
			sb.WriteString("\r\n")
		}
	}
	sb.WriteString("--" + boundary + "--\r\n")
	return []byte(sb.String())
}

func wrap76(s string) string {
	var sb strings.Builder
	for len(s) > 76 {
		sb.WriteString(s[:76] + "\r\n")
		s = s[76:]
	}
	sb.WriteString(s + "\r\n")
	return sb.String()
}
