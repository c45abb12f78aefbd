package mailbox

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/welldanyogia/brandocs-backend/internal/attachment"
)

// DateLayout is the fixed RFC 2822 rendering used for fetched message dates
const DateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

var unfold = strings.NewReplacer("\r\n", "", "\n", "")

// wordDecoder decodes RFC 2047 words one at a time; a word in an unknown
// charset keeps its raw bytes and is repaired as UTF-8 afterwards
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(name string, input io.Reader) (io.Reader, error) {
		if r, err := charset.Reader(name, input); err == nil {
			return r, nil
		}
		return input, nil
	},
}

// FetchedMessage is the decoded newest message of a mailbox
type FetchedMessage struct {
	Subject   string   `json:"subject"`
	From      string   `json:"from"`
	Date      string   `json:"date"`
	HasPDF    bool     `json:"has_pdf"`
	PDFEmails []string `json:"pdf_emails"`

	PDF *attachment.PDF `json:"-"`
}

// FetchResult is the outcome of a successful fetch. Empty is set when the
// mailbox holds no messages.
type FetchResult struct {
	Empty   bool
	UID     uint32
	Message *FetchedMessage
}

// DecodeMessage decodes the headers of a raw RFC 5322 message and classifies
// its attachments. Undecodable headers and dates degrade to safe defaults.
func DecodeMessage(raw []byte, logger *slog.Logger) *FetchedMessage {
	if logger == nil {
		logger = slog.Default()
	}

	hdr, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		logger.Warn("failed to read message header", "error", err)
	}
	h := mail.Header{Header: message.Header{Header: hdr}}

	classification := attachment.Classify(raw, logger)

	return &FetchedMessage{
		Subject:   decodeHeader(h, "Subject", logger),
		From:      decodeHeader(h, "From", logger),
		Date:      parseDate(h, logger).Format(DateLayout),
		HasPDF:    classification.HasPDF,
		PDFEmails: classification.Emails,
		PDF:       classification.PDF,
	}
}

// decodeHeader applies RFC 2047 decoding word by word and replaces invalid
// UTF-8 with U+FFFD
func decodeHeader(h mail.Header, key string, logger *slog.Logger) string {
	raw := unfold.Replace(h.Get(key))
	text, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		logger.Warn("failed to decode header", "header", key, "error", err)
		text = raw
	}
	return strings.ToValidUTF8(text, "\uFFFD")
}

func parseDate(h mail.Header, logger *slog.Logger) time.Time {
	date, err := h.Date()
	if err != nil || date.IsZero() {
		logger.Warn("invalid message date, using current time",
			"date", h.Get("Date"),
			"error", err,
		)
		return time.Now().UTC()
	}
	return date.UTC()
}
