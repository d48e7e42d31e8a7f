package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tankevents/internal/infrastructure"
)

// Message types sent by the hub
const (
	TypeConnection = "connection"
	TypeSnapshot   = "operation:snapshot"
)

// broadcastBuffer bounds the hub queue; updates are dropped when it is full
const broadcastBuffer = 256

type envelope struct {
	eventType string
	payload   []byte
}

// Hub maintains the set of active clients and fans run updates out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	running bool
}

// NewHub creates a hub; metrics may be nil
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in the background. Repeated calls are ignored.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	ctx := context.Background()
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.recordConnect(ctx)
			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			client.trySend(h.connectionMessage(client))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client)
			close(client.send)
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt))
			h.logger.InfoContext(client.context(), "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, msg envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients {
		if client.trySend(msg.payload) {
			delivered++
			continue
		}
		// slow consumer
		close(client.send)
		delete(h.clients, client)
		h.metrics.recordDropped(ctx, "client_buffer_full")
		h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
			slog.String("client_id", client.id))
	}
	h.messagesSent += int64(delivered)
	h.metrics.recordBroadcast(ctx, msg.eventType, delivered, len(msg.payload))

	h.logger.Debug("Broadcast delivered",
		slog.String("type", msg.eventType),
		slog.Int("clients", delivered),
		slog.Int("payload_size", len(msg.payload)))
}

func (h *Hub) connectionMessage(client *Client) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type": TypeConnection,
		"data": map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
	return data
}

// BroadcastUpdate queues an update for every connected client. Snapshot
// payloads already carry the step and status so those fields are only
// added for other event types.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	message := map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if eventType != TypeSnapshot {
		message["step"] = step
		message["status"] = status
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", eventType))
		return
	}

	select {
	case h.broadcast <- envelope{eventType: eventType, payload: payload}:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.metrics.recordDropped(context.Background(), "hub_queue_full")
		h.logger.Warn("Broadcast queue full, dropping update", slog.String("type", eventType))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for the health endpoint
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}

// Stop stops the hub loop and closes every client queue
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
