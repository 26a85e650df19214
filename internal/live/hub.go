// Package live pushes todo changes to every open tab of the owning user over
// a websocket.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/iliyamo/todo-app/internal/model"
)

// Event types sent to clients.
const (
	TodoAdded   = "todo.added"
	TodoToggled = "todo.toggled"
	TodoDeleted = "todo.deleted"
)

// Event is one frame on the wire.
type Event struct {
	Type string     `json:"type"`
	Todo model.Todo `json:"todo"`
}

type delivery struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients per user and fans events out to
// them.
type Hub struct {
	// Registered clients, keyed by user id.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}

	log *slog.Logger
	mu  sync.RWMutex
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns client registration and delivery until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("live client registered", "user_id", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case d := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.data:
				default:
					// Slow consumer: drop it rather than block the hub.
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.log.Debug("live client unregistered", "user_id", c.userID)
}

// TodoChanged queues an event for all of the user's connections.  It never
// blocks the caller; when the queue is full the event is dropped.
func (h *Hub) TodoChanged(userID, kind string, t model.Todo) {
	data, err := json.Marshal(Event{Type: kind, Todo: t})
	if err != nil {
		h.log.Error("live: marshal event", "err", err)
		return
	}
	select {
	case h.broadcast <- delivery{userID: userID, data: data}:
	default:
		h.log.Warn("live: broadcast queue full, event dropped", "user_id", userID, "type", kind)
	}
}

// Connections returns how many clients the user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
