package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"adcpview/internal/infrastructure"
)

// Message types pushed to clients
const (
	TypeConnection = "connection"
	TypeSubscribed = "subscribed"
	TypeView       = "view"
	TypeError      = "error"
)

// sendBuffer is the per-client and hub queue length.
const sendBuffer = 256

// Message is the envelope of every frame the hub sends.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

type envelope struct {
	sessionID string
	msgType   string
	payload   []byte
}

type subscription struct {
	client    *Client
	sessionID string
}

// Hub maintains the set of active clients and routes session messages to the
// clients subscribed to them.
type Hub struct {
	// Registered clients and the session each one follows
	clients map[*Client]string

	publish    chan envelope
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *OTelMetrics

	messagesSent int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	metrics, err := NewOTelMetrics()
	if err != nil {
		logger.Warn("websocket metrics unavailable", slog.String("error", err.Error()))
	}

	return &Hub{
		clients:    make(map[*Client]string),
		publish:    make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		logger:     logger,
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start starts the hub loop. It is idempotent.
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

// Stop ends the hub loop and closes every client's queue. It is idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = ""
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))
			if h.metrics != nil {
				h.metrics.RecordConnection(ctx)
			}

			h.deliver(client, Message{
				Type: TypeConnection,
				Data: map[string]any{
					"status":    "connected",
					"client_id": client.id,
				},
				TraceID: client.traceID,
			})

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

			ctx := client.context()
			h.logger.InfoContext(ctx, "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))
			if h.metrics != nil {
				h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), "normal")
			}

		case sub := <-h.subscribe:
			h.mu.Lock()
			_, ok := h.clients[sub.client]
			if ok {
				h.clients[sub.client] = sub.sessionID
			}
			h.mu.Unlock()
			if !ok {
				continue
			}
			h.logger.DebugContext(sub.client.context(), "Client subscribed",
				slog.String("client_id", sub.client.id),
				slog.String("session_id", sub.sessionID))
			h.deliver(sub.client, Message{
				Type:      TypeSubscribed,
				SessionID: sub.sessionID,
				TraceID:   sub.client.traceID,
			})

		case env := <-h.publish:
			h.fanOut(env)
		}
	}
}

// fanOut sends env to the clients following its session. A client whose
// queue is full is disconnected.
func (h *Hub) fanOut(env envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client, session := range h.clients {
		if env.sessionID == "" || session == env.sessionID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	var delivered, failed int64
	for _, client := range targets {
		select {
		case client.send <- env.payload:
			delivered++
		default:
			failed++
			h.mu.Lock()
			delete(h.clients, client)
			close(client.send)
			h.mu.Unlock()
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.mu.Lock()
	h.messagesSent += delivered
	h.mu.Unlock()

	h.logger.Debug("Published message",
		slog.String("type", env.msgType),
		slog.String("session_id", env.sessionID),
		slog.Int64("delivered", delivered),
		slog.Int("message_size", len(env.payload)))

	if h.metrics != nil {
		h.metrics.RecordPublish(context.Background(), env.msgType, delivered, failed)
	}
}

// deliver queues msg for a single client without blocking the hub loop.
func (h *Hub) deliver(client *Client, msg Message) {
	msg.Timestamp = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(client.context(), "Failed to send message - client buffer full",
			slog.String("client_id", client.id),
			slog.String("type", msg.Type))
	}
}

// Publish queues a message for the clients subscribed to sessionID. The
// trace id of ctx travels with the message. When the hub queue is full the
// message is dropped.
func (h *Hub) Publish(ctx context.Context, sessionID, msgType string, data any) {
	msg := Message{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   infrastructure.GetTraceID(ctx),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msgType))
		return
	}

	select {
	case h.publish <- envelope{sessionID: sessionID, msgType: msgType, payload: payload}:
	case <-h.quit:
	default:
		h.logger.WarnContext(ctx, "Hub queue full, dropping message",
			slog.String("message_type", msgType),
			slog.String("session_id", sessionID))
		if h.metrics != nil {
			h.metrics.RecordDroppedMessage(ctx, msgType, "queue_full")
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its queue.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Subscribe makes client follow sessionID. An empty id limits the client to
// messages addressed to everyone.
func (h *Hub) Subscribe(client *Client, sessionID string) {
	select {
	case h.subscribe <- subscription{client: client, sessionID: sessionID}:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients following sessionID.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, s := range h.clients {
		if s == sessionID {
			n++
		}
	}
	return n
}
