package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/brandocs-backend/internal/models"
)

// MockCompanyRepository implements repository.CompanyRepository
type MockCompanyRepository struct {
	mock.Mock
}

// Create creates a company with its aliases
func (m *MockCompanyRepository) Create(ctx context.Context, company *models.Company, emails []string) error {
	args := m.Called(ctx, company, emails)
	return args.Error(0)
}

// GetByID retrieves a company by its ID
func (m *MockCompanyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

// List retrieves all companies
func (m *MockCompanyRepository) List(ctx context.Context) ([]models.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Company), args.Error(1)
}

// Update saves a company and optionally replaces its aliases
func (m *MockCompanyRepository) Update(ctx context.Context, company *models.Company, emails *[]string) error {
	args := m.Called(ctx, company, emails)
	return args.Error(0)
}

// Delete deletes a company by its ID
func (m *MockCompanyRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// FindByAlias returns the company owning an alias
func (m *MockCompanyRepository) FindByAlias(ctx context.Context, address string) (*models.Company, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

// MockEmailRepository implements repository.EmailRepository
type MockEmailRepository struct {
	mock.Mock
}

// Create stores a tracked email
func (m *MockEmailRepository) Create(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// GetByID retrieves an email by its ID
func (m *MockEmailRepository) GetByID(ctx context.Context, id uint) (*models.Email, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

// FindBySenderSubject looks up an already tracked email
func (m *MockEmailRepository) FindBySenderSubject(ctx context.Context, sender, subject string) (*models.Email, error) {
	args := m.Called(ctx, sender, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

// List retrieves a page of emails and the total count
func (m *MockEmailRepository) List(ctx context.Context, limit, offset int) ([]models.Email, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Email), args.Get(1).(int64), args.Error(2)
}

// Delete deletes an email by its ID
func (m *MockEmailRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Stats returns dashboard counters
func (m *MockEmailRepository) Stats(ctx context.Context) (*models.EmailStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailStats), args.Error(1)
}
