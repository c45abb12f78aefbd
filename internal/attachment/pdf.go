package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyPDF is returned for a zero-length payload
var ErrEmptyPDF = errors.New("empty pdf payload")

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// ExtractEmails concatenates the text of every page and returns the distinct
// addresses found in it. A page that fails is logged and skipped.
func ExtractEmails(data []byte, logger *slog.Logger) (emails []string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 {
		return []string{}, ErrEmptyPDF
	}

	// the parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			emails, err = []string{}, fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return []string{}, fmt.Errorf("failed to open pdf: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		pageText, err := readPage(reader, i)
		if err != nil {
			logger.Warn("skipping unreadable pdf page", "page", i, "error", err)
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return FindEmails(text.String()), nil
}

func readPage(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", num)
	}
	return page.GetPlainText(nil)
}

// FindEmails returns the distinct addresses in text, in order of first appearance
func FindEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
