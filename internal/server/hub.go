// Package server coordinates client registration, presence and chat
// broadcast, and connection cleanup for the WebSocket side via the Hub type.
package server

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Tyrowin/gochat-presence/internal/logging"
)

// HubConfig carries the Hub's collaborators.
type HubConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics

	// BroadcastOnDisconnect pushes a fresh roster after every unregister,
	// not only after every register.
	BroadcastOnDisconnect bool
}

// Hub is the registry of live WebSocket clients. Only the Run goroutine
// mutates the client set or writes to client queues; other goroutines read
// the set through snapshots taken under the read lock.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]uint64 // value is the join sequence
	nextSeq uint64

	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage

	pumps  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	log                   *slog.Logger
	metrics               *Metrics
	broadcastOnDisconnect bool
}

// NewHub returns an idle Hub. Run must be started before clients register.
func NewHub(cfg HubConfig) *Hub {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:               make(map[*Client]uint64),
		register:              make(chan *Client),
		unregister:            make(chan *Client),
		broadcast:             make(chan BroadcastMessage),
		ctx:                   ctx,
		cancel:                cancel,
		done:                  make(chan struct{}),
		log:                   log,
		metrics:               cfg.Metrics,
		broadcastOnDisconnect: cfg.BroadcastOnDisconnect,
	}
}

// Register hands client to the hub. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub. It is safe to call more than once
// and after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every client except msg.Sender. It returns false
// if the hub has stopped.
func (h *Hub) Broadcast(msg BroadcastMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run is the hub's event loop. Every membership change and every fan-out
// happens here, one event at a time. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("nil client registration ignored")
				continue
			}
			h.add(client)
			h.broadcastPresence()

		case client := <-h.unregister:
			if h.remove(client) && h.broadcastOnDisconnect {
				h.broadcastPresence()
			}

		case msg := <-h.broadcast:
			h.relay(msg)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.nextSeq++
	h.clients[client] = h.nextSeq
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.setConnections(n)
	h.log.Info("client registered",
		"conn_id", client.id,
		"remote", client.addr,
		"username", client.usernameOrEmpty(),
		"clients", n)

	if client.conn == nil {
		return
	}

	h.pumps.Add(2)
	go func() {
		defer h.pumps.Done()
		client.writePump()
	}()
	go func() {
		defer h.pumps.Done()
		client.readPump()
	}()
}

// remove deletes client and closes its queue. It reports whether the client
// was still registered.
func (h *Hub) remove(client *Client) bool {
	removed := h.drop([]*Client{client})
	if removed == 0 {
		return false
	}
	h.log.Info("client unregistered", "conn_id", client.id, "remote", client.addr, "clients", h.ClientCount())
	return true
}

// drop removes every registered client in victims, closes their queues and
// returns how many were removed. The write pump of each sees the closed
// queue, sends a close frame and shuts the socket.
func (h *Hub) drop(victims []*Client) int {
	h.mu.Lock()
	removed := make([]*Client, 0, len(victims))
	for _, client := range victims {
		if _, ok := h.clients[client]; !ok {
			continue
		}
		delete(h.clients, client)
		client.closed = true
		removed = append(removed, client)
	}
	n := len(h.clients)
	h.mu.Unlock()

	for _, client := range removed {
		close(client.send)
	}
	h.metrics.setConnections(n)
	return len(removed)
}

// snapshot returns the registered clients in join order.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	slices.SortFunc(clients, func(a, b *Client) int {
		return compareSeq(h.clients[a], h.clients[b])
	})
	return clients
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// relay delivers a chat payload to everyone but its sender.
func (h *Hub) relay(msg BroadcastMessage) {
	clients := h.snapshot()
	h.log.Debug("relaying chat message", "targets", len(clients)-1)
	evicted := h.fanOut(clients, msg)
	h.metrics.incBroadcast("chat")

	if evicted > 0 && h.broadcastOnDisconnect {
		h.broadcastPresence()
	}
}

// fanOut offers msg.Payload to each client without blocking. Clients whose
// queue is full are evicted; the rest still receive the payload. It returns
// the number of evicted clients.
func (h *Hub) fanOut(clients []*Client, msg BroadcastMessage) int {
	var slow []*Client
	for _, client := range clients {
		if client == msg.Sender {
			continue
		}
		if !h.offer(client, msg.Payload) {
			slow = append(slow, client)
		}
	}
	if len(slow) == 0 {
		return 0
	}

	evicted := h.drop(slow)
	for _, client := range slow {
		h.log.Warn("client evicted: send queue full", "conn_id", client.id, "remote", client.addr)
	}
	h.metrics.addEvictions(evicted)
	return evicted
}

// offer is a non-blocking send to a still-registered client.
func (h *Hub) offer(client *Client, payload []byte) bool {
	h.mu.RLock()
	_, registered := h.clients[client]
	open := registered && !client.closed
	h.mu.RUnlock()
	if !open {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// closeAll unregisters every client and closes its socket.
func (h *Hub) closeAll() {
	clients := h.snapshot()
	h.drop(clients)

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("close client connection", "conn_id", client.id, "err", err)
		}
	}
	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops Run, closes every connection and waits up to timeout for
// the client pumps to exit.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("hub shutting down")
	h.cancel()
	<-h.done

	pumpsDone := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(pumpsDone)
	}()

	select {
	case <-pumpsDone:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out with pumps still running")
		return context.DeadlineExceeded
	}
}
