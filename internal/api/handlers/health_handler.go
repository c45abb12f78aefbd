package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"gorm.io/gorm"
)

// StateReporter exposes the mailbox poller state
type StateReporter interface {
	State() mailbox.State
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db      *gorm.DB
	mailbox StateReporter
}

// NewHealthHandler creates a new HealthHandler. mailbox may be nil.
func NewHealthHandler(db *gorm.DB, mailbox StateReporter) *HealthHandler {
	return &HealthHandler{db: db, mailbox: mailbox}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) pingDatabase(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(c.Request().Context())
}

// Health handles GET /health. The mailbox is polled on demand, so its
// state is reported without affecting the overall status.
func (h *HealthHandler) Health(c echo.Context) error {
	services := make(map[string]string)
	status := "healthy"

	if err := h.pingDatabase(c); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	if h.mailbox != nil {
		services["mailbox"] = h.mailbox.State().String()
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if err := h.pingDatabase(c); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
