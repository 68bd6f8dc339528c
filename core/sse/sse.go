package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type (
	// Listener defines the interface for the receiving end.
	Listener interface {
		ID() string
		Chan() chan Envelope
	}

	// Envelope defines the interface for content that can be delivered
	// to clients.
	Envelope interface {
		String() string
	}

	// Hub delivers messages to the clients of a single user. Events
	// published for one user are never visible to another.
	Hub interface {
		Publish(userID string, message Envelope)
		Subscribe(userID string, cl Listener)
		Unsubscribe(userID, clientID string)
		Handle(ctx *fiber.Ctx, userID string, cl Listener)
		Clients(userID string) []string
	}
)

type Client struct {
	id string
	ch chan Envelope
}

func NewClient(id string) Listener {
	return &Client{
		id: id,
		ch: make(chan Envelope, 50),
	}
}

func (c *Client) ID() string          { return c.id }
func (c *Client) Chan() chan Envelope { return c.ch }

// Message is an SSE event with a JSON payload.
type Message struct {
	Event string
	Time  time.Time
	Data  string
}

// NewMessage builds a message from an event name and a payload, which
// is JSON-encoded for transmission.
func NewMessage(event string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return &Message{
		Event: event,
		Time:  time.Now(),
		Data:  string(data),
	}
}

// String returns the message in SSE wire format.
func (m *Message) String() string {
	sb := strings.Builder{}

	if m.Event != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", m.Event))
	}
	sb.WriteString(fmt.Sprintf("data: %v\n\n", m.Data))

	return sb.String()
}

// userHub tracks the clients and replay history of one user.
type userHub struct {
	clients sync.Map
	history *history
}

// broadcastHub routes published messages to the owning user's clients.
type broadcastHub struct {
	mu          sync.Mutex
	users       map[string]*userHub
	historySize int
}

// NewHub initializes and returns a new Hub instance.
func NewHub(historySize int) Hub {
	return &broadcastHub{
		users:       make(map[string]*userHub),
		historySize: historySize,
	}
}

func (h *broadcastHub) user(userID string) *userHub {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, ok := h.users[userID]
	if !ok {
		u = &userHub{history: newHistory(h.historySize)}
		h.users[userID] = u
	}
	return u
}

// Publish delivers a message to every connected client of the user.
// Clients with a full channel drop the message.
func (h *broadcastHub) Publish(userID string, message Envelope) {
	u := h.user(userID)
	u.history.Add(message)
	u.clients.Range(func(key, value any) bool {
		client, ok := value.(Listener)
		if !ok {
			return true
		}
		select {
		case client.Chan() <- message:
		default:
			// Client channel full, drop.
		}
		return true
	})
}

// Subscribe registers a client on the user's channel.
func (h *broadcastHub) Subscribe(userID string, cl Listener) {
	h.user(userID).clients.Store(cl.ID(), cl)
}

// Unsubscribe removes a client from the user's channel.
func (h *broadcastHub) Unsubscribe(userID, clientID string) {
	h.user(userID).clients.Delete(clientID)
}

// Clients lists the connected client IDs of a user.
func (h *broadcastHub) Clients(userID string) []string {
	var clients []string
	h.user(userID).clients.Range(func(key, value any) bool {
		id, ok := key.(string)
		if ok {
			clients = append(clients, id)
		}
		return true
	})
	return clients
}

// Handle sets up a new client on the user's channel and streams events
// until disconnect.
func (h *broadcastHub) Handle(c *fiber.Ctx, userID string, cl Listener) {
	u := h.user(userID)
	h.Subscribe(userID, cl)
	ctx := c.Context()

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Cache-Control")
	ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
	ctx.Response.Header.Set("X-Accel-Buffering", "no") // Disable proxy buffering

	// Send history to the newly connected client
	u.history.Send(cl)

	done := make(chan struct{})
	// Both the disconnect watcher and the stream writer race to tear
	// the client down, so the teardown must run exactly once.
	teardown := newTeardown(func() {
		u.clients.Delete(cl.ID())
		close(cl.Chan())
		close(done)
	})

	go func() {
		select {
		case <-ctx.Done():
			teardown()
		case <-done:
		}
	}()

	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer teardown()

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		w.Flush()

		for {
			select {
			case msg, ok := <-cl.Chan():
				if !ok {
					return
				}
				_, err := fmt.Fprint(w, msg.String())
				if err != nil {
					return
				}
				w.Flush()

			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}))
}

// newTeardown wraps fn so concurrent callers run it at most once.
func newTeardown(fn func()) func() {
	var once sync.Once
	return func() {
		once.Do(fn)
	}
}

type history struct {
	mu       sync.Mutex
	messages []Envelope
	maxSize  int
}

func newHistory(maxSize int) *history {
	return &history{
		messages: []Envelope{},
		maxSize:  maxSize,
	}
}

func (h *history) Add(message Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message)
	if len(h.messages) > h.maxSize {
		h.messages = h.messages[len(h.messages)-h.maxSize:]
	}
}

func (h *history) Send(c Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, msg := range h.messages {
		select {
		case c.Chan() <- msg:
		default:
		}
	}
}
