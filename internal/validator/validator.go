// Package validator provides input validation and sanitization for the
// company directory and email listing endpoints.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInputTooLong     = errors.New("input exceeds maximum length")
	ErrInvalidCharacter = errors.New("input contains invalid characters")
	ErrEmptyInput       = errors.New("input cannot be empty")
)

// Field limits matching the database columns
const (
	MaxCompanyNameLength = 100
	MaxAliasLength       = 120
)

// ValidateEmail validates a bare email address according to RFC 5322.
// Display names and angle brackets are rejected.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	return nil
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NormalizeAliases validates company sender aliases and returns them
// normalized, with duplicates removed in first-seen order.
func NormalizeAliases(emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, raw := range emails {
		email := NormalizeEmail(raw)
		if err := ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%q: %w", raw, err)
		}
		if utf8.RuneCountInString(email) > MaxAliasLength {
			return nil, fmt.Errorf("%q: %w", raw, ErrInputTooLong)
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out, nil
}

// ValidateCompanyName sanitizes a company name and rejects empty or oversized values
func ValidateCompanyName(name string) (string, error) {
	name = SanitizeString(name, 0)
	if name == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(name) > MaxCompanyNameLength {
		return "", ErrInputTooLong
	}
	return name, nil
}

// Pagination constants
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ValidatePage sanitizes 1-based page parameters and returns the row offset.
// A non-positive perPage falls back to defaultPerPage.
func ValidatePage(page, perPage, defaultPerPage int) (int, int, int) {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage, (page - 1) * perPage
}

// SanitizeFilename removes dangerous characters from filename.
// Prevents path traversal and removes control characters.
func SanitizeFilename(filename string) string {
	// Remove path separators to prevent path traversal
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")

	// Remove null bytes
	filename = strings.ReplaceAll(filename, "\x00", "")

	filename = stripControl(filename)
	filename = strings.TrimSpace(filename)

	// Limit length to 255 characters (common filesystem limit)
	if utf8.RuneCountInString(filename) > 255 {
		runes := []rune(filename)
		filename = string(runes[:255])
	}

	if filename == "" {
		return "unnamed"
	}

	return filename
}

// SanitizeString removes control characters, trims whitespace and enforces
// maxLength when it is positive.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(stripControl(input))

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}

// stripControl drops ASCII control characters (0-31 and 127)
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
