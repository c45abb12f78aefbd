package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// EventType names an event pushed to dashboard clients
type EventType string

// EventEmailStored is pushed after a fetched message has been stored
const EventEmailStored EventType = "email_stored"

// Event is a server-pushed feed message
type Event struct {
	Type  EventType           `json:"type"`
	Email *EmailStoredPayload `json:"email"`
}

// EmailStoredPayload describes a newly tracked email
type EmailStoredPayload struct {
	ID          uint     `json:"id"`
	Subject     string   `json:"subject"`
	From        string   `json:"from"`
	Date        string   `json:"date"`
	HasPDF      bool     `json:"has_pdf"`
	PDFEmails   []string `json:"pdf_emails"`
	CompanyID   *uint    `json:"company_id,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
}

type broadcastMessage struct {
	companyID uint
	data      []byte
}

// Hub fans stored-email events out to connected dashboards.
// A client without company filters receives every event; a filtered client
// only receives events linked to one of its companies.
type Hub struct {
	mu sync.RWMutex

	// client -> company filter; nil means unfiltered
	clients map[*Client]map[uint]bool
	stopped bool

	broadcast chan broadcastMessage
	logger    *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:   make(map[*Client]map[uint]bool),
		broadcast: make(chan broadcastMessage, 256),
		logger:    logger,
	}
}

// Run delivers queued events until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]map[uint]bool)
			h.mu.Unlock()
			return

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client, filter := range h.clients {
		if filter != nil && !filter[msg.companyID] {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			h.logger.Debug("client buffer full, event dropped")
		}
	}
}

// Register adds a client. A client registered after shutdown is closed at once.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(client.send)
		return
	}
	h.clients[client] = nil
	h.logger.Debug("client registered", "clients", len(h.clients))
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug("client unregistered", "clients", len(h.clients))
}

// Subscribe restricts a registered client to events of the given company
func (h *Hub) Subscribe(client *Client, companyID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	filter, ok := h.clients[client]
	if !ok {
		return
	}
	if filter == nil {
		filter = make(map[uint]bool)
		h.clients[client] = filter
	}
	filter[companyID] = true
}

// Unsubscribe removes a company filter; a client left without filters
// receives the full feed again
func (h *Hub) Unsubscribe(client *Client, companyID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	filter := h.clients[client]
	if filter == nil {
		return
	}
	delete(filter, companyID)
	if len(filter) == 0 {
		h.clients[client] = nil
	}
}

// Companies returns the company filter of a client, nil when unfiltered
func (h *Hub) Companies(client *Client) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	filter := h.clients[client]
	if filter == nil {
		return nil
	}
	ids := make([]uint, 0, len(filter))
	for id := range filter {
		ids = append(ids, id)
	}
	return ids
}

// deliver queues data for a single registered client without blocking
func (h *Hub) deliver(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEmailStored notifies clients about a newly stored email
func (h *Hub) BroadcastEmailStored(payload *EmailStoredPayload) {
	var companyID uint
	if payload.CompanyID != nil {
		companyID = *payload.CompanyID
	}

	data, err := json.Marshal(Event{Type: EventEmailStored, Email: payload})
	if err != nil {
		h.logger.Error("failed to marshal email event", "error", err)
		return
	}

	select {
	case h.broadcast <- broadcastMessage{companyID: companyID, data: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "email_id", payload.ID)
	}
}
