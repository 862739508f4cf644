package websocket

import (
	"context"
	"sync"

	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	ID        uuid.UUID
	StudentID int
	TestID    int

	conn Conn
	mu   sync.Mutex
}

func NewClient(studentID, testID int, conn Conn) *Client {
	return &Client{ID: uuid.New(), StudentID: studentID, TestID: testID, conn: conn}
}

// Send serializes writes; the hub and the reading handler share the conn.
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type envelope struct {
	studentID int
	ev        session.Event
}

// Hub fans session events out to every connection of a student. Ticks go
// through a bounded queue and may be dropped under load; alerts and
// navigations are queued without limit so a client always learns where to go.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[int]map[uuid.UUID]*Client
	broadcast chan envelope

	pendingMu sync.Mutex
	pending   []envelope
	wake      chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   map[int]map[uuid.UUID]*Client{},
		broadcast: make(chan envelope, 256),
		wake:      make(chan struct{}, 1),
	}
}

func (h *Hub) Register(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if h.clients[c.StudentID] == nil {
		h.clients[c.StudentID] = map[uuid.UUID]*Client{}
	}
	h.clients[c.StudentID][c.ID] = c
	log.Debug().Str("client", c.ID.String()).Int("studentID", c.StudentID).Msg("client registered")
}

// Unregister removes c and returns how many connections the student still
// has open for the same test.
func (h *Hub) Unregister(c *Client) int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	conns := h.clients[c.StudentID]
	delete(conns, c.ID)
	left := 0
	for _, other := range conns {
		if other.TestID == c.TestID {
			left++
		}
	}
	if len(conns) == 0 {
		delete(h.clients, c.StudentID)
	}
	log.Debug().Str("client", c.ID.String()).Int("studentID", c.StudentID).Int("remaining", left).Msg("client unregistered")
	return left
}

// Publish queues ev for delivery without blocking the session. A tick is
// dropped when the queue is full; other events are always kept.
func (h *Hub) Publish(studentID int, ev session.Event) {
	msg := envelope{studentID: studentID, ev: ev}
	if ev.Type != session.EventTick {
		h.pendingMu.Lock()
		h.pending = append(h.pending, msg)
		h.pendingMu.Unlock()
		select {
		case h.wake <- struct{}{}:
		default:
		}
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Int("studentID", studentID).Msg("event queue full, dropping tick")
	}
}

// Run delivers queued events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		h.flushPending()
		select {
		case <-ctx.Done():
			return
		case <-h.wake:
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) flushPending() {
	h.pendingMu.Lock()
	batch := h.pending
	h.pending = nil
	h.pendingMu.Unlock()
	for _, msg := range batch {
		h.deliver(msg)
	}
}

func (h *Hub) deliver(msg envelope) {
	h.clientsMu.RLock()
	targets := make([]*Client, 0, len(h.clients[msg.studentID]))
	for _, c := range h.clients[msg.studentID] {
		if c.TestID == msg.ev.TestID {
			targets = append(targets, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range targets {
		if err := c.Send(msg.ev); err != nil {
			log.Debug().Err(err).Str("client", c.ID.String()).Msg("error sending event, closing connection")
			c.conn.Close()
			h.Unregister(c)
		}
	}
}

var _ Conn = (*websocket.Conn)(nil)
