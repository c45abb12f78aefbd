package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/brandocs-backend/internal/models"
	"gorm.io/gorm"
)

// CompanyRepository defines the interface for company and alias data access
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company, emails []string) error
	GetByID(ctx context.Context, id uint) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, company *models.Company, emails *[]string) error
	Delete(ctx context.Context, id uint) error
	FindByAlias(ctx context.Context, address string) (*models.Company, error)
}

// companyRepository implements CompanyRepository using GORM
type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository instance
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

// Create creates a company together with its aliases
func (r *companyRepository) Create(ctx context.Context, company *models.Company, emails []string) error {
	if company.Name == "" {
		return fmt.Errorf("company name is required: %w", ErrInvalidInput)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Emails").Create(company).Error; err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		aliases, err := createAliases(tx, company.ID, emails)
		if err != nil {
			return err
		}
		company.Emails = aliases
		return nil
	})
}

// GetByID retrieves a company with its aliases
func (r *companyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).Preload("Emails", orderByID).First(&company, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company by ID: %w", result.Error)
	}
	return &company, nil
}

// List retrieves all companies with their aliases
func (r *companyRepository) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	result := r.db.WithContext(ctx).Preload("Emails", orderByID).Order("id ASC").Find(&companies)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list companies: %w", result.Error)
	}
	return companies, nil
}

// Update saves the company name; when emails is non-nil the alias set is replaced
func (r *companyRepository) Update(ctx context.Context, company *models.Company, emails *[]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Company{}).Where("id = ?", company.ID).Update("name", company.Name)
		if result.Error != nil {
			return fmt.Errorf("failed to update company: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if emails == nil {
			return nil
		}

		if err := tx.Where("company_id = ?", company.ID).Delete(&models.CompanyEmail{}).Error; err != nil {
			return fmt.Errorf("failed to remove company emails: %w", err)
		}
		aliases, err := createAliases(tx, company.ID, *emails)
		if err != nil {
			return err
		}
		company.Emails = aliases
		return nil
	})
}

// Delete removes a company and its aliases; linked emails are kept and unlinked
func (r *companyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Email{}).Where("company_id = ?", id).Update("company_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink emails: %w", err)
		}
		if err := tx.Where("company_id = ?", id).Delete(&models.CompanyEmail{}).Error; err != nil {
			return fmt.Errorf("failed to delete company emails: %w", err)
		}
		result := tx.Delete(&models.Company{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete company: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindByAlias returns the company owning the first alias equal to address.
// Aliases are not unique across companies; the oldest alias wins.
func (r *companyRepository) FindByAlias(ctx context.Context, address string) (*models.Company, error) {
	var alias models.CompanyEmail
	result := r.db.WithContext(ctx).
		Where("email = ?", address).
		Order("id ASC").
		First(&alias)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find company by alias: %w", result.Error)
	}
	return r.GetByID(ctx, alias.CompanyID)
}

func createAliases(tx *gorm.DB, companyID uint, emails []string) ([]models.CompanyEmail, error) {
	aliases := make([]models.CompanyEmail, 0, len(emails))
	for _, addr := range emails {
		alias := models.CompanyEmail{Email: addr, CompanyID: companyID}
		if err := tx.Omit("Company").Create(&alias).Error; err != nil {
			return nil, fmt.Errorf("failed to create company email: %w", err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
