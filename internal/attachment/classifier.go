// Package attachment finds the PDF attachment of a raw message and scans it
// for email addresses.
package attachment

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/jhillyerd/enmime"
)

// pdfContentTypes are the declared content types accepted as PDF
var pdfContentTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

// PDF is the first PDF attachment found in a message
type PDF struct {
	Filename string
	Content  []byte
}

// Classification is the outcome of scanning a message for a PDF attachment
type Classification struct {
	HasPDF bool
	Emails []string
	PDF    *PDF
}

// Classify walks every MIME part of raw depth-first and processes the first
// PDF attachment. Unreadable PDFs leave HasPDF set with no addresses.
func Classify(raw []byte, logger *slog.Logger) Classification {
	if logger == nil {
		logger = slog.Default()
	}
	result := Classification{Emails: []string{}}

	root, err := enmime.ReadParts(bytes.NewReader(raw))
	if err != nil {
		logger.Warn("failed to parse message parts", "error", err)
		return result
	}

	part := root.DepthMatchFirst(isPDFAttachment)
	if part == nil {
		return result
	}

	result.HasPDF = true
	result.PDF = &PDF{Filename: part.FileName, Content: part.Content}

	emails, err := ExtractEmails(part.Content, logger)
	if err != nil {
		logger.Warn("failed to extract text from pdf",
			"filename", part.FileName,
			"error", err,
		)
		return result
	}
	result.Emails = emails
	return result
}

// isPDFAttachment reports whether a leaf part carries a Content-Disposition
// and is named or typed as a PDF
func isPDFAttachment(p *enmime.Part) bool {
	if strings.HasPrefix(strings.ToLower(p.ContentType), "multipart/") {
		return false
	}
	if p.Header.Get("Content-Disposition") == "" {
		return false
	}
	if strings.HasSuffix(strings.ToLower(p.FileName), ".pdf") {
		return true
	}
	return pdfContentTypes[strings.ToLower(p.ContentType)]
}
