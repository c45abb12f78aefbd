package models

import (
	"strings"
	"time"
)

// Column limits for decoded header values
const (
	SenderMaxLength  = 255
	SubjectMaxLength = 500
)

// Email represents a tracked message fetched from the monitored mailbox
type Email struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Sender      string    `gorm:"size:255;index:idx_emails_sender_subject" json:"sender"`
	Subject     string    `gorm:"size:500;index:idx_emails_sender_subject" json:"subject"`
	Date        time.Time `gorm:"index" json:"date"`
	HasPDF      bool      `gorm:"default:false" json:"has_pdf"`
	PDFEmails   string    `gorm:"type:text" json:"pdf_emails"`
	PDFFilename string    `gorm:"size:255" json:"pdf_filename,omitempty"`
	PDFPath     string    `gorm:"size:500" json:"-"`
	CompanyID   *uint     `gorm:"index" json:"company_id,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:SET NULL" json:"company,omitempty"`
}

// TableName returns the table name for Email
func (Email) TableName() string {
	return "emails"
}

// PDFEmailList splits the stored comma-joined addresses
func (e *Email) PDFEmailList() []string {
	if e.PDFEmails == "" {
		return []string{}
	}
	parts := strings.Split(e.PDFEmails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPDFEmails renders extracted addresses in their stored form
func JoinPDFEmails(emails []string) string {
	return strings.Join(emails, ",")
}

// EmailStats holds dashboard counters
type EmailStats struct {
	Companies int64 `json:"companies"`
	PDFs      int64 `json:"pdfs"`
	Emails    int64 `json:"emails"`
}

// EmailCompany is the company summary embedded in email list items
type EmailCompany struct {
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

// EmailListItem is the dashboard view of a stored email
type EmailListItem struct {
	ID        uint          `json:"id"`
	Subject   string        `json:"subject"`
	From      string        `json:"from"`
	Date      string        `json:"date"`
	HasPDF    bool          `json:"has_pdf"`
	PDFEmails []string      `json:"pdf_emails"`
	Company   *EmailCompany `json:"company,omitempty"`
}

// ToListItem renders the email for listing, with its date in the given zone.
// Company must be preloaded together with its aliases to be included.
func (e *Email) ToListItem(loc *time.Location) EmailListItem {
	if loc == nil {
		loc = time.UTC
	}
	item := EmailListItem{
		ID:        e.ID,
		Subject:   e.Subject,
		From:      e.Sender,
		Date:      e.Date.In(loc).Format(time.RFC3339),
		HasPDF:    e.HasPDF,
		PDFEmails: e.PDFEmailList(),
	}
	if e.Company != nil {
		item.Company = &EmailCompany{
			Name:   e.Company.Name,
			Emails: e.Company.Addresses(),
		}
	}
	return item
}
