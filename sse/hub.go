package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/serviceclient/logger"
)

const clientBuffer = 256

// Client is one connected stream.
type Client struct {
	id       string
	metadata map[string]string
	events   chan Frame
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata attaches a metadata pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.metadata[key] = value }
}

// NewClient creates a client with a buffered event queue.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan Frame, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client ID.
func (c *Client) ID() string { return c.id }

// Metadata returns the client metadata.
func (c *Client) Metadata() map[string]string { return c.metadata }

// Events returns the client's queue.
func (c *Client) Events() <-chan Frame { return c.events }

// Send queues a frame. It returns false when the queue is full.
func (c *Client) Send(f Frame) bool {
	select {
	case c.events <- f:
		return true
	default:
		return false
	}
}

func (c *Client) close() { close(c.events) }

type message struct {
	pattern string
	frame   Frame
}

// Hub tracks connected clients and fans frames out to them. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	log        *logger.Logger

	mu       sync.RWMutex
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. A nil logger disables logging.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, clientBuffer),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse.hub"),
	}
}

// Start runs the hub loop in a goroutine. Stop waits for it.
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Run()
	}()
}

// Run processes registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "total_clients", n))

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Stop shuts the hub down and closes every client queue. Safe to call
// more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	h.wg.Wait()
}

// Register adds a client. It returns false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToPattern queues a frame for every client whose ID matches pattern.
func (h *Hub) BroadcastToPattern(pattern string, frame Frame) {
	select {
	case h.broadcast <- message{pattern: pattern, frame: frame}:
	case <-h.done:
	}
}

// Broadcast queues a frame for every client.
func (h *Hub) Broadcast(frame Frame) {
	h.BroadcastToPattern("*", frame)
}

func (h *Hub) fanOut(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		matched, err := filepath.Match(msg.pattern, id)
		if err != nil {
			h.log.Error("bad client pattern", logger.Fields("pattern", msg.pattern, "error", err.Error()))
			return
		}
		if !matched {
			continue
		}
		if c.Send(msg.frame) {
			sent++
		} else {
			h.log.Warn("client queue full, dropping event", logger.Fields("client_id", id, "event", msg.frame.Event))
		}
	}
	h.log.Debug("broadcast sent", logger.Fields("pattern", msg.pattern, "event", msg.frame.Event, "match_count", sent))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
