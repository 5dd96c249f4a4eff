package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fortuna/huddle/internal/ingest"
)

// Message types sent to clients
const (
	MessageTypeRunStarted   = "run_started"
	MessageTypeBatch        = "batch"
	MessageTypeRunCompleted = "run_completed"
)

// Message is the envelope written to every client
type Message struct {
	Type      string         `json:"type"`
	Variant   ingest.Variant `json:"variant"`
	Payload   interface{}    `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type batchPayload struct {
	Index   int    `json:"index"`
	Size    int    `json:"size"`
	Written int64  `json:"written"`
	Error   string `json:"error,omitempty"`
}

// Hub maintains the set of active clients and broadcasts run events to them.
// It implements ingest.Reporter.
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	totalMessages int64
	metricsMu     sync.Mutex

	logger *log.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			h.clientsMu.Unlock()
			h.logger.Printf("client connected (total: %d)", h.ClientCount())

		case c := <-h.unregister:
			h.removeClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// leave unregisters c unless the hub has already shut down
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for every client; it never blocks
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Printf("⚠️  Broadcast buffer full, dropping %s message", msg.Type)
	}
}

func (h *Hub) OnRunStart(variant ingest.Variant) {
	h.Broadcast(Message{Type: MessageTypeRunStarted, Variant: variant, Timestamp: time.Now()})
}

func (h *Hub) OnBatch(result ingest.BatchResult) {
	payload := batchPayload{Index: result.Index, Size: result.Size, Written: result.Written}
	if result.Err != nil {
		payload.Error = result.Err.Error()
	}
	h.Broadcast(Message{Type: MessageTypeBatch, Variant: result.Variant, Payload: payload, Timestamp: time.Now()})
}

func (h *Hub) OnRunComplete(summary ingest.Summary) {
	h.Broadcast(Message{Type: MessageTypeRunCompleted, Variant: summary.Variant, Payload: summary, Timestamp: time.Now()})
}

// ClientCount returns the number of active clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// MessagesDelivered returns how many broadcasts reached at least one client
func (h *Hub) MessagesDelivered() int64 {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return h.totalMessages
}

func (h *Hub) deliver(msg Message) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	sent := 0
	for _, c := range clients {
		if !c.wants(msg.Variant) {
			continue
		}
		if c.trySend(msg) {
			sent++
			continue
		}
		// Too slow to keep up; drop the client.
		h.logger.Printf("⚠️  client buffer full, disconnecting")
		h.removeClient(c)
	}

	if sent > 0 {
		h.metricsMu.Lock()
		h.totalMessages++
		h.metricsMu.Unlock()
	}
}

func (h *Hub) removeClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.logger.Printf("Shutting down hub (%d active clients)", len(h.clients))
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
