package fixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/brandocs-backend/internal/database"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that lives for the test
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)

	// Enable foreign keys for SQLite (required for cascade delete)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// ResetTables removes all rows, children first
func ResetTables(db *gorm.DB) {
	db.Exec("DELETE FROM emails")
	db.Exec("DELETE FROM company_emails")
	db.Exec("DELETE FROM companies")
}

// CompanyBuilder creates test Company instances with fluent API
type CompanyBuilder struct {
	company models.Company
}

// NewCompanyBuilder creates a new CompanyBuilder with sensible defaults
func NewCompanyBuilder() *CompanyBuilder {
	now := time.Now()
	return &CompanyBuilder{
		company: models.Company{
			ID:        1,
			Name:      "Acme",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// WithID sets the company ID
func (b *CompanyBuilder) WithID(id uint) *CompanyBuilder {
	b.company.ID = id
	return b
}

// WithName sets the company name
func (b *CompanyBuilder) WithName(name string) *CompanyBuilder {
	b.company.Name = name
	return b
}

// WithAliases sets the company's sender aliases
func (b *CompanyBuilder) WithAliases(addrs ...string) *CompanyBuilder {
	b.company.Emails = nil
	for i, addr := range addrs {
		b.company.Emails = append(b.company.Emails, models.CompanyEmail{
			ID:        uint(i + 1),
			Email:     addr,
			CompanyID: b.company.ID,
		})
	}
	return b
}

// Build returns the constructed Company
func (b *CompanyBuilder) Build() *models.Company {
	return &b.company
}

// EmailBuilder creates test Email instances with fluent API
type EmailBuilder struct {
	email models.Email
}

// NewEmailBuilder creates a new EmailBuilder with sensible defaults
func NewEmailBuilder() *EmailBuilder {
	return &EmailBuilder{
		email: models.Email{
			ID:      1,
			Sender:  "billing@acme.com",
			Subject: "Invoice 2024-001",
			Date:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

// WithID sets the email ID
func (b *EmailBuilder) WithID(id uint) *EmailBuilder {
	b.email.ID = id
	return b
}

// WithSender sets the sender
func (b *EmailBuilder) WithSender(sender string) *EmailBuilder {
	b.email.Sender = sender
	return b
}

// WithSubject sets the subject
func (b *EmailBuilder) WithSubject(subject string) *EmailBuilder {
	b.email.Subject = subject
	return b
}

// WithDate sets the message date
func (b *EmailBuilder) WithDate(date time.Time) *EmailBuilder {
	b.email.Date = date
	return b
}

// WithPDFEmails marks the email as carrying a PDF with the given addresses
func (b *EmailBuilder) WithPDFEmails(addrs ...string) *EmailBuilder {
	b.email.HasPDF = true
	b.email.PDFEmails = models.JoinPDFEmails(addrs)
	return b
}

// WithCompany links the email to a company
func (b *EmailBuilder) WithCompany(company *models.Company) *EmailBuilder {
	b.email.Company = company
	if company != nil {
		id := company.ID
		b.email.CompanyID = &id
	}
	return b
}

// Build returns the constructed Email
func (b *EmailBuilder) Build() *models.Email {
	return &b.email
}

// BuildValue returns the constructed Email as a value (not pointer)
func (b *EmailBuilder) BuildValue() models.Email {
	return b.email
}
