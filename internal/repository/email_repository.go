package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/brandocs-backend/internal/models"
	"gorm.io/gorm"
)

// EmailRepository defines the interface for tracked email data access
type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id uint) (*models.Email, error)
	FindBySenderSubject(ctx context.Context, sender, subject string) (*models.Email, error)
	List(ctx context.Context, limit, offset int) ([]models.Email, int64, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (*models.EmailStats, error)
}

// emailRepository implements EmailRepository using GORM
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new EmailRepository instance
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

// Create stores a new email in a transaction; any failure rolls the insert back
func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Company").Create(email).Error; err != nil {
			return fmt.Errorf("failed to create email: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an email with its company and the company's aliases
func (r *emailRepository) GetByID(ctx context.Context, id uint) (*models.Email, error) {
	var email models.Email
	result := r.db.WithContext(ctx).Preload("Company.Emails").First(&email, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email by ID: %w", result.Error)
	}
	return &email, nil
}

// FindBySenderSubject looks up an already processed email by exact sender and subject
func (r *emailRepository) FindBySenderSubject(ctx context.Context, sender, subject string) (*models.Email, error) {
	var email models.Email
	result := r.db.WithContext(ctx).
		Where("sender = ? AND subject = ?", sender, subject).
		Order("id ASC").
		First(&email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find email by sender and subject: %w", result.Error)
	}
	return &email, nil
}

// List retrieves emails newest first with pagination
func (r *emailRepository) List(ctx context.Context, limit, offset int) ([]models.Email, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Email{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count emails: %w", err)
	}

	var emails []models.Email
	result := r.db.WithContext(ctx).
		Preload("Company.Emails").
		Order("date DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", result.Error)
	}

	return emails, total, nil
}

// Delete deletes an email by its ID
func (r *emailRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Email{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete email: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts companies, emails with a PDF and all emails
func (r *emailRepository) Stats(ctx context.Context) (*models.EmailStats, error) {
	var stats models.EmailStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Company{}).Count(&stats.Companies).Error; err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if err := db.Model(&models.Email{}).Where("has_pdf = ?", true).Count(&stats.PDFs).Error; err != nil {
		return nil, fmt.Errorf("failed to count pdf emails: %w", err)
	}
	if err := db.Model(&models.Email{}).Count(&stats.Emails).Error; err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}
	return &stats, nil
}
