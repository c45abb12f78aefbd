package models

import (
	"time"
)

// Company represents a known business partner that incoming mail is linked to
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Emails []CompanyEmail `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Company
func (Company) TableName() string {
	return "companies"
}

// Addresses returns the alias addresses registered for the company
func (c *Company) Addresses() []string {
	out := make([]string, 0, len(c.Emails))
	for _, e := range c.Emails {
		out = append(out, e.Email)
	}
	return out
}

// CompanyEmail is a sender alias mapped to a company
type CompanyEmail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:120;index" json:"email"`
	CompanyID uint      `gorm:"not null;index" json:"company_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for CompanyEmail
func (CompanyEmail) TableName() string {
	return "company_emails"
}

// CompanyListItem is the list view of a company
type CompanyListItem struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Emails     []string `json:"emails"`
	EmailCount int      `json:"email_count"`
}

// CompanyDetail is the detail view of a company
type CompanyDetail struct {
	ID     uint     `json:"id"`
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

// ToDetail converts a company with preloaded aliases to its detail view
func (c *Company) ToDetail() CompanyDetail {
	return CompanyDetail{ID: c.ID, Name: c.Name, Emails: c.Addresses()}
}

// ToListItem converts a company with preloaded aliases to its list view
func (c *Company) ToListItem() CompanyListItem {
	addrs := c.Addresses()
	return CompanyListItem{ID: c.ID, Name: c.Name, Emails: addrs, EmailCount: len(addrs)}
}
