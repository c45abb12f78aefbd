package handlers

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/api/response"
	"github.com/welldanyogia/brandocs-backend/internal/services"
)

// LatestChecker runs one fetch-and-store cycle on the monitored mailbox
type LatestChecker interface {
	CheckLatest(ctx context.Context) (*services.CheckResult, error)
}

// EmptyMailboxResult is the data returned when the mailbox holds no messages
type EmptyMailboxResult struct {
	Message string `json:"message"`
}

// CheckHandler handles latest-message checks
type CheckHandler struct {
	checker LatestChecker
}

// NewCheckHandler creates a new CheckHandler
func NewCheckHandler(checker LatestChecker) *CheckHandler {
	return &CheckHandler{checker: checker}
}

// CheckLatest handles GET /check-latest and POST /api/check.
// Data is the fetched message, null for an already tracked message,
// or a notice when the mailbox is empty.
func (h *CheckHandler) CheckLatest(c echo.Context) error {
	result, err := h.checker.CheckLatest(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	switch result.Status {
	case services.CheckEmpty:
		return response.SuccessData(c, EmptyMailboxResult{Message: "No emails found"})
	case services.CheckDuplicate:
		return response.SuccessData(c, nil)
	default:
		return response.SuccessData(c, result.Message)
	}
}
