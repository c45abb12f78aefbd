package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/api/response"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/internal/validator"
)

// EmailHandler handles tracked-email HTTP requests
type EmailHandler struct {
	repo     repository.EmailRepository
	files    storage.FileStorage
	location *time.Location
	perPage  int
	security *logger.SecurityLogger
	logger   *slog.Logger
}

// NewEmailHandler creates a new EmailHandler. Listed dates are rendered in
// location; perPage is the default page size.
func NewEmailHandler(
	repo repository.EmailRepository,
	files storage.FileStorage,
	location *time.Location,
	perPage int,
	security *logger.SecurityLogger,
	log *slog.Logger,
) *EmailHandler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	if security == nil {
		security = logger.NewSecurityLoggerFrom(log)
	}
	return &EmailHandler{
		repo:     repo,
		files:    files,
		location: location,
		perPage:  perPage,
		security: security,
		logger:   log,
	}
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

// List handles GET /api/emails?page=&per_page=, newest first
func (h *EmailHandler) List(c echo.Context) error {
	page, perPage, offset := validator.ValidatePage(queryInt(c, "page"), queryInt(c, "per_page"), h.perPage)

	emails, total, err := h.repo.List(c.Request().Context(), perPage, offset)
	if err != nil {
		return response.InternalError(c, "failed to list emails")
	}

	items := make([]models.EmailListItem, 0, len(emails))
	for i := range emails {
		items = append(items, emails[i].ToListItem(h.location))
	}
	return response.Paginated(c, items, page, perPage, total)
}

func (h *EmailHandler) load(c echo.Context) (*models.Email, error) {
	id, ok := parseID(c)
	if !ok {
		return nil, response.BadRequest(c, "invalid email ID")
	}

	email, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, response.NotFound(c, "email not found")
		}
		return nil, response.InternalError(c, "failed to get email")
	}
	return email, nil
}

// Get handles GET /api/emails/:id
func (h *EmailHandler) Get(c echo.Context) error {
	email, err := h.load(c)
	if email == nil {
		return err
	}
	return response.Success(c, email.ToListItem(h.location))
}

// Delete handles DELETE /api/emails/:id and removes its stored PDF
func (h *EmailHandler) Delete(c echo.Context) error {
	email, err := h.load(c)
	if email == nil {
		return err
	}

	if err := h.repo.Delete(c.Request().Context(), email.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "email not found")
		}
		return response.InternalError(c, "failed to delete email")
	}

	if email.PDFPath != "" {
		if err := h.files.Delete(email.PDFPath); err != nil {
			h.logger.Warn("failed to delete stored pdf",
				"email_id", email.ID,
				"path", email.PDFPath,
				"error", err,
			)
		}
	}

	return response.Success(c, nil)
}

// DownloadPDF handles GET /api/emails/:id/pdf
func (h *EmailHandler) DownloadPDF(c echo.Context) error {
	email, err := h.load(c)
	if email == nil {
		return err
	}
	if email.PDFPath == "" {
		return response.NotFound(c, "pdf not stored")
	}

	file, err := h.files.Get(email.PDFPath)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrPathTraversal):
			h.security.PathTraversalAttempt(c.RealIP(), c.Request().URL.Path, email.PDFPath)
			return response.BadRequest(c, "invalid file path")
		case errors.Is(err, storage.ErrFileNotFound):
			return response.NotFound(c, "pdf not found")
		default:
			return response.InternalError(c, "failed to retrieve file")
		}
	}
	defer file.Close()

	filename := validator.SanitizeFilename(email.PDFFilename)
	if filename == "" || filename == "unnamed" {
		filename = "attachment.pdf"
	}
	filename = strings.ReplaceAll(filename, `"`, "")

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Stream(http.StatusOK, "application/pdf", file)
}

// Stats handles GET /api/stats
func (h *EmailHandler) Stats(c echo.Context) error {
	stats, err := h.repo.Stats(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to get stats")
	}
	return response.Stats(c, stats)
}
