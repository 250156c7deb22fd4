// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat-presence/internal/auth"
)

const (
	sendQueueSize = 256
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// ClientConfig holds the per-connection limits.
type ClientConfig struct {
	MaxMessageSize int64
	RateLimit      RateLimitConfig
}

// Client is one WebSocket session. Its identity is fixed when the handshake
// completes: verified claims, or nil for an anonymous connection.
//
// The hub owns send: only the Run goroutine writes to or closes it.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	addr     string
	identity *auth.Claims
	closed   bool

	maxMessageSize int64
	limiter        *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a Client for conn. A nil conn yields a detached client
// whose only output is its send channel; the hub starts no pumps for it.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, identity *auth.Claims, cfg ClientConfig) *Client {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, sendQueueSize),
		hub:            hub,
		addr:           addr,
		identity:       identity,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the connection identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Username returns the verified username, or false for anonymous clients.
func (c *Client) Username() (string, bool) {
	if c.identity == nil {
		return "", false
	}
	return c.identity.Username, true
}

func (c *Client) usernamePtr() *string {
	if name, ok := c.Username(); ok {
		return &name
	}
	return nil
}

func (c *Client) usernameOrEmpty() string {
	name, _ := c.Username()
	return name
}

// GetSendChan exposes the outgoing queue for reading.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) logger() *slog.Logger {
	return c.hub.log.With("conn_id", c.id, "remote", c.addr)
}

// readPump relays inbound chat frames until the transport fails, then
// unregisters the client.
func (c *Client) readPump() {
	log := c.logger()
	defer func() {
		c.hub.Unregister(c)
		c.closeConn(log)
	}()

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn("set read deadline", "err", err)
		return
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(log, err)
			return
		}

		if !c.limiter.allow() {
			log.Warn("rate limit exceeded; discarding message",
				"burst", c.rateLimit.Burst,
				"interval", c.rateLimit.RefillInterval.String())
			continue
		}

		c.processMessage(frame)
	}
}

func (c *Client) logReadError(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("message exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		log.Info("client disconnected", "err", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Info("client connection closed", "err", err)
	default:
		log.Warn("websocket read error", "err", err)
	}
}

// processMessage stamps a chat frame with the sender's identity and hands it
// to the hub. It reports whether the message was relayed.
func (c *Client) processMessage(frame []byte) bool {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.hub.log.Info("invalid message", "conn_id", c.id, "err", err)
		return false
	}

	payload, err := json.Marshal(ChatMessage{Sender: c.usernamePtr(), Content: msg.Content})
	if err != nil {
		c.hub.log.Error("encode chat message", "conn_id", c.id, "err", err)
		return false
	}

	return c.hub.Broadcast(BroadcastMessage{Sender: c, Payload: payload})
}

// writePump drains send, one JSON document per text frame, and keeps the
// connection alive with pings. It exits when send is closed or a write fails.
func (c *Client) writePump() {
	log := c.logger()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn(log)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.write(log, websocket.CloseMessage, []byte{})
				return
			}
			if !c.write(log, websocket.TextMessage, payload) {
				return
			}
		case <-ticker.C:
			if !c.write(log, websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) write(log *slog.Logger, messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Warn("set write deadline", "err", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		if !isExpectedCloseError(err) {
			log.Info("websocket write failed", "type", messageType, "err", err)
		}
		return false
	}
	return true
}

func (c *Client) closeConn(log *slog.Logger) {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Warn("close connection", "err", err)
	}
}
