package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// subscription requests are small JSON objects
	maxRequestSize = 512

	lookupTimeout = 5 * time.Second
	sendBuffer    = 64
)

// Subscription actions accepted from dashboard clients
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Reply types answering a subscription request
const (
	ReplySubscribed   = "subscribed"
	ReplyUnsubscribed = "unsubscribed"
	ReplyError        = "error"
)

// CompanyLookup reports whether a company exists
type CompanyLookup func(ctx context.Context, id uint) (bool, error)

// Reply acknowledges or rejects a subscription request
type Reply struct {
	Type      string `json:"type"`
	CompanyID uint   `json:"company_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type subscriptionRequest struct {
	Action    string `json:"action"`
	CompanyID uint   `json:"company_id"`
}

// Client is one dashboard connection on the email feed
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	companies CompanyLookup
	logger    *slog.Logger
}

// NewClient wraps an upgraded connection. With a nil lookup every company ID
// is accepted.
func NewClient(hub *Hub, conn *websocket.Conn, companies CompanyLookup, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		companies: companies,
		logger:    logger,
	}
}

// ReadPump reads subscription requests until the connection fails, then
// unregisters the client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxRequestSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		c.reply(c.handle(data))
	}
}

// WritePump writes queued events and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		var err error
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, data)
		case <-ticker.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// handle applies one subscription request and builds its reply
func (c *Client) handle(data []byte) Reply {
	var req subscriptionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return Reply{Type: ReplyError, Error: "invalid request"}
	}
	if req.Action != ActionSubscribe && req.Action != ActionUnsubscribe {
		return Reply{Type: ReplyError, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if req.CompanyID == 0 {
		return Reply{Type: ReplyError, Error: "company_id is required"}
	}

	if req.Action == ActionUnsubscribe {
		c.hub.Unsubscribe(c, req.CompanyID)
		return Reply{Type: ReplyUnsubscribed, CompanyID: req.CompanyID}
	}

	if msg := c.checkCompany(req.CompanyID); msg != "" {
		return Reply{Type: ReplyError, CompanyID: req.CompanyID, Error: msg}
	}
	c.hub.Subscribe(c, req.CompanyID)
	return Reply{Type: ReplySubscribed, CompanyID: req.CompanyID}
}

// checkCompany returns a client-facing message when the company cannot be followed
func (c *Client) checkCompany(id uint) string {
	if c.companies == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	exists, err := c.companies(ctx, id)
	switch {
	case err != nil:
		c.logger.Warn("company lookup failed", "company_id", id, "error", err)
		return "company lookup failed"
	case !exists:
		return "company not found"
	default:
		return ""
	}
}

func (c *Client) reply(r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if !c.hub.deliver(c, data) {
		c.logger.Debug("reply dropped", "type", r.Type)
	}
}
