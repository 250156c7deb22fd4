package server

import (
	"errors"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// Message is the inbound JSON frame a client sends to chat.
type Message struct {
	Content string `json:"content"`
}

// ChatMessage is what other clients receive for a relayed Message.
// Sender is null for anonymous connections.
type ChatMessage struct {
	Sender  *string `json:"sender"`
	Content string  `json:"content"`
}

// BroadcastMessage is a payload for the hub to fan out. A non-nil Sender is
// skipped during delivery.
type BroadcastMessage struct {
	Sender  *Client
	Payload []byte
}

// isExpectedCloseError reports errors that only mean the peer or the hub
// already tore the connection down.
func isExpectedCloseError(err error) bool {
	return err == nil ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
