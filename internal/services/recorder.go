package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/welldanyogia/brandocs-backend/internal/attachment"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/internal/validator"
)

// EmailRecorder turns fetched messages into stored emails
type EmailRecorder interface {
	// Record stores msg unless an email with the same sender and subject
	// exists, in which case it returns nil, nil
	Record(ctx context.Context, msg *mailbox.FetchedMessage) (*models.Email, error)
}

// emailRecorder implements EmailRecorder
type emailRecorder struct {
	emails    repository.EmailRepository
	companies repository.CompanyRepository
	files     storage.FileStorage
	logger    *slog.Logger
	now       func() time.Time
}

// NewEmailRecorder creates a new EmailRecorder. files may be nil, in which
// case PDF attachments are not kept.
func NewEmailRecorder(
	emails repository.EmailRepository,
	companies repository.CompanyRepository,
	files storage.FileStorage,
	logger *slog.Logger,
) EmailRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailRecorder{
		emails:    emails,
		companies: companies,
		files:     files,
		logger:    logger.With("component", "recorder"),
		now:       time.Now,
	}
}

// Record implements EmailRecorder
func (r *emailRecorder) Record(ctx context.Context, msg *mailbox.FetchedMessage) (*models.Email, error) {
	// stored values are cut to the column sizes, so the lookup uses the same cut
	sender := validator.SanitizeString(msg.From, models.SenderMaxLength)
	subject := validator.SanitizeString(msg.Subject, models.SubjectMaxLength)

	_, err := r.emails.FindBySenderSubject(ctx, sender, subject)
	if err == nil {
		r.logger.Info("email already processed",
			"sender", sender,
			"subject", subject,
		)
		return nil, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing email: %w", err)
	}

	email := &models.Email{
		Sender:    sender,
		Subject:   subject,
		Date:      r.parseDate(msg.Date),
		HasPDF:    msg.HasPDF,
		PDFEmails: models.JoinPDFEmails(msg.PDFEmails),
	}

	company, err := r.resolveCompany(ctx, msg.From)
	if err != nil {
		return nil, err
	}
	if company != nil {
		email.CompanyID = &company.ID
		email.Company = company
	}

	r.storePDF(email, msg.PDF)

	if err := r.emails.Create(ctx, email); err != nil {
		r.discardPDF(email)
		return nil, fmt.Errorf("failed to store email: %w", err)
	}

	r.logger.Info("email stored",
		"email_id", email.ID,
		"sender", email.Sender,
		"has_pdf", email.HasPDF,
		"company_id", email.CompanyID,
	)
	return email, nil
}

func (r *emailRecorder) parseDate(value string) time.Time {
	date, err := time.Parse(mailbox.DateLayout, value)
	if err != nil {
		r.logger.Warn("invalid fetched date, using current time", "date", value, "error", err)
		return r.now().UTC()
	}
	return date.UTC()
}

// resolveCompany finds the company owning the sender's address, nil when unknown
func (r *emailRecorder) resolveCompany(ctx context.Context, from string) (*models.Company, error) {
	address := SenderAddress(from)
	if address == "" {
		return nil, nil
	}

	company, err := r.companies.FindByAlias(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve company for %s: %w", address, err)
	}
	return company, nil
}

func (r *emailRecorder) storePDF(email *models.Email, pdf *attachment.PDF) {
	if r.files == nil || pdf == nil || len(pdf.Content) == 0 {
		return
	}

	filename := validator.SanitizeFilename(pdf.Filename)
	if filename == "unnamed" {
		filename = "attachment.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}

	if !storage.IsPDF(pdf.Content) {
		r.logger.Warn("pdf not stored", "filename", filename, "error", storage.ErrNotPDF)
		return
	}
	if err := storage.ValidateFile(filename, int64(len(pdf.Content))); err != nil {
		r.logger.Warn("pdf not stored", "filename", filename, "error", err)
		return
	}

	path, err := r.files.Save(filename, bytes.NewReader(pdf.Content))
	if err != nil {
		r.logger.Warn("failed to store pdf", "filename", filename, "error", err)
		return
	}
	email.PDFFilename = filename
	email.PDFPath = path
}

func (r *emailRecorder) discardPDF(email *models.Email) {
	if r.files == nil || email.PDFPath == "" {
		return
	}
	if err := r.files.Delete(email.PDFPath); err != nil {
		r.logger.Warn("failed to remove orphaned pdf", "path", email.PDFPath, "error", err)
	}
	email.PDFPath = ""
	email.PDFFilename = ""
}

// SenderAddress extracts the lowercased bare address from a From header
// value. Values that do not parse are trimmed and lowercased whole.
func SenderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(from))
}
