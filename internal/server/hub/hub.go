// Package hub fans newly committed messages out to every connected
// websocket client. The hub is a best-effort live overlay: delivery order
// equals Publish order, clients that connect later backfill over HTTP, and
// nothing here is a source of truth.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/chatline/internal/logging"
	"github.com/dmitrijs2005/chatline/internal/server/models"
)

// Event is the wire envelope pushed to clients.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const broadcastBuffer = 256

// Hub owns the set of connected clients and serializes fanout through a
// single run loop, so publish order is preserved end to end.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	logger     logging.Logger

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(logger logging.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		logger:     logger.With("module", "hub"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Publish enqueues a committed message for delivery to every client
// currently connected. It never fails the caller: a marshal error is logged
// and the message stays durable in the store regardless.
func (h *Hub) Publish(message *models.Message) {
	payload, err := json.Marshal(Event{Event: "new_message", Data: message})
	if err != nil {
		h.logger.Error(h.ctx, "failed to marshal event", "error", err.Error())
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.ctx.Done():
	}
}

// Register adds a client to the fanout set. The client starts receiving
// events published after registration completes.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister drops a client from the fanout set. Safe to call at any time,
// including for clients already removed.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run is the hub's event loop. It must run in its own goroutine; storage
// waits elsewhere never block it.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info(h.ctx, "client connected", "addr", client.addr, "clients", count)

		case client := <-h.unregister:
			h.drop(client, "disconnected")

		case payload := <-h.broadcast:
			h.deliver(payload)
		}
	}
}

// deliver sends one payload to every connected client. A client whose send
// buffer is full is evicted rather than allowed to stall the others.
func (h *Hub) deliver(payload []byte) {
	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- payload:
		default:
			h.drop(client, "send buffer full")
		}
	}
}

func (h *Hub) drop(client *Client, reason string) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mutex.Unlock()

	close(client.send)
	h.logger.Info(h.ctx, "client removed", "addr", client.addr, "reason", reason, "clients", count)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			_ = client.conn.Close()
		}
	}
}

// Shutdown stops the run loop, closes all client connections, and waits for
// the pump goroutines to finish or the timeout to pass.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
