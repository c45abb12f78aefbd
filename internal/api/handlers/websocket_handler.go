package handlers

import (
	"context"
	"errors"
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/websocket"
)

// WebSocketHandler upgrades dashboard connections to the live email feed
type WebSocketHandler struct {
	hub       *websocket.Hub
	companies websocket.CompanyLookup
	upgrader  gorillaws.Upgrader
	logger    *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler accepting the given origins.
// Subscriptions are checked against companyRepo when it is set.
func NewWebSocketHandler(hub *websocket.Hub, companyRepo repository.CompanyRepository, origins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WebSocketHandler{
		hub:      hub,
		upgrader: websocket.NewSecureUpgrader(origins, logger),
		logger:   logger,
	}
	if companyRepo != nil {
		h.companies = companyExists(companyRepo)
	}
	return h
}

func companyExists(repo repository.CompanyRepository) websocket.CompanyLookup {
	return func(ctx context.Context, id uint) (bool, error) {
		_, err := repo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

// Handle handles GET /ws
func (h *WebSocketHandler) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", "error", err)
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.companies, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
