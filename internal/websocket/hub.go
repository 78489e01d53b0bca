package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/store"
)

// DocumentEvent is pushed to every connected client when the store changes
type DocumentEvent struct {
	Type      string            `json:"type"`
	Kind      store.ChangeKind  `json:"kind"`
	IDs       []string          `json:"ids"`
	Documents []models.Document `json:"documents,omitempty"`
	At        time.Time         `json:"at"`
}

const EventDocumentsChanged = "DOCUMENTS_CHANGED"

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	stopOnce   sync.Once

	// lookup resolves changed ids to their current state; optional
	lookup func(id string) (models.Document, bool)

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
		clients:    make(map[string]*Client),
	}
}

// AttachStore subscribes the hub to st so every change reaches the clients
func (h *Hub) AttachStore(st *store.Store) {
	h.lookup = st.Get
	st.Subscribe(h.OnStoreChange)
}

// OnStoreChange converts a store change into a DocumentEvent
func (h *Hub) OnStoreChange(c store.Change) {
	ev := DocumentEvent{
		Type: EventDocumentsChanged,
		Kind: c.Kind,
		IDs:  c.IDs,
		At:   time.Now(),
	}
	// merges can touch the whole collection; clients refetch instead
	if h.lookup != nil && (c.Kind == store.ChangeCreated || c.Kind == store.ChangeUpdated) {
		for _, id := range c.IDs {
			if doc, ok := h.lookup(id); ok {
				ev.Documents = append(ev.Documents, doc)
			}
		}
	}
	h.Broadcast(ev)
}

// Run starts the hub's main loop; it returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// Same id connecting again replaces the old connection
			if old, ok := h.clients[client.ID]; ok {
				close(old.send)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("📱 Client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.ID]; ok && cur == client {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("📴 Client disconnected: %s (%s)", client.ID, client.Operator)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it
					delete(h.clients, id)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Broadcast queues message for every connected client
func (h *Hub) Broadcast(message interface{}) bool {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return false
	}

	select {
	case h.broadcast <- jsonMsg:
		return true
	case <-h.stop:
		return false
	default:
		log.Printf("⚠️ WS: broadcast queue full, dropping event")
		return false
	}
}

// sendTo queues msg for c if the hub still holds it. The hub closes send
// channels only under the write lock, so the read lock keeps the channel open.
func (h *Hub) sendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return false
	}
	select {
	case c.send <- msg:
	default:
	}
	return true
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
