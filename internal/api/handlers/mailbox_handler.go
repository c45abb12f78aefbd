package handlers

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/api/response"
)

// ConnectionTester probes the mail server with a connect/disconnect cycle
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// MailboxHandler handles mailbox diagnostics
type MailboxHandler struct {
	tester ConnectionTester
	logger *slog.Logger
}

// NewMailboxHandler creates a new MailboxHandler
func NewMailboxHandler(tester ConnectionTester, logger *slog.Logger) *MailboxHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailboxHandler{tester: tester, logger: logger}
}

// TestConnection handles GET /api/mailbox/test
func (h *MailboxHandler) TestConnection(c echo.Context) error {
	if err := h.tester.TestConnection(c.Request().Context()); err != nil {
		h.logger.Warn("mailbox connection test failed", "error", err)
		return response.ServiceUnavailable(c, "Failed to connect to mail server", err.Error())
	}
	return response.SuccessWithMessage(c, nil, "Connection successful")
}
