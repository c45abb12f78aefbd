package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/api/response"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/validator"
)

// CompanyHandler handles company-related HTTP requests
type CompanyHandler struct {
	repo repository.CompanyRepository
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(repo repository.CompanyRepository) *CompanyHandler {
	return &CompanyHandler{repo: repo}
}

// CreateCompanyRequest represents the request body for creating a company
type CreateCompanyRequest struct {
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

// UpdateCompanyRequest represents the request body for updating a company.
// Omitted fields are left unchanged.
type UpdateCompanyRequest struct {
	Name   *string   `json:"name,omitempty"`
	Emails *[]string `json:"emails,omitempty"`
}

func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func companyNameError(err error) string {
	if errors.Is(err, validator.ErrEmptyInput) {
		return "Missing company name"
	}
	return "company name must be at most 100 characters"
}

// List handles GET /api/companies
func (h *CompanyHandler) List(c echo.Context) error {
	companies, err := h.repo.List(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to list companies")
	}

	items := make([]models.CompanyListItem, 0, len(companies))
	for i := range companies {
		items = append(items, companies[i].ToListItem())
	}
	return response.Success(c, items)
}

// Create handles POST /api/companies
func (h *CompanyHandler) Create(c echo.Context) error {
	var req CreateCompanyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	name, err := validator.ValidateCompanyName(req.Name)
	if err != nil {
		return response.BadRequest(c, companyNameError(err))
	}
	aliases, err := validator.NormalizeAliases(req.Emails)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	company := &models.Company{Name: name}
	if err := h.repo.Create(c.Request().Context(), company, aliases); err != nil {
		return response.InternalError(c, "failed to create company")
	}

	return response.Created(c, company.ToDetail())
}

// Get handles GET /api/companies/:id
func (h *CompanyHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "invalid company ID")
	}

	company, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "company not found")
		}
		return response.InternalError(c, "failed to get company")
	}

	return response.Success(c, company.ToDetail())
}

// Update handles PUT /api/companies/:id. Aliases are replaced only when
// the emails field is present.
func (h *CompanyHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "invalid company ID")
	}

	var req UpdateCompanyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	company, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "company not found")
		}
		return response.InternalError(c, "failed to get company")
	}

	if req.Name != nil {
		name, err := validator.ValidateCompanyName(*req.Name)
		if err != nil {
			return response.BadRequest(c, companyNameError(err))
		}
		company.Name = name
	}

	var aliases *[]string
	if req.Emails != nil {
		normalized, err := validator.NormalizeAliases(*req.Emails)
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		aliases = &normalized
	}

	if err := h.repo.Update(c.Request().Context(), company, aliases); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "company not found")
		}
		return response.InternalError(c, "failed to update company")
	}

	return response.Success(c, company.ToDetail())
}

// Delete handles DELETE /api/companies/:id. Linked emails are kept.
func (h *CompanyHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "invalid company ID")
	}

	if err := h.repo.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "company not found")
		}
		return response.InternalError(c, "failed to delete company")
	}

	return response.Success(c, nil)
}
