package hub

import (
	"encoding/json"
	"log"
	"sync"

	"solitaire-ledger/internal/ledger"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

type Connection struct {
	Identity string
	Writer   Writer
}

// Hub fans contract events out to the websocket connections of the player
// they concern.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
}

func New() *Hub {
	return &Hub{connections: make(map[string]map[*Connection]struct{})}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.Identity] == nil {
		h.connections[conn.Identity] = make(map[*Connection]struct{})
	}
	h.connections[conn.Identity][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.Identity]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.Identity)
	}
}

func (h *Hub) Broadcast(identity string, message []byte) {
	h.mu.RLock()
	set := h.connections[identity]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}

// EventMessage is the frame pushed for every committed contract event.
type EventMessage struct {
	Type  string       `json:"type"`
	Event ledger.Event `json:"event"`
}

// Publish implements ledger.EventSink. Events without a player attribute
// are dropped.
func (h *Hub) Publish(ev ledger.Event) {
	identity := ev.Attributes["player"]
	if identity == "" {
		return
	}
	out, err := json.Marshal(EventMessage{Type: "event", Event: ev})
	if err != nil {
		log.Printf("[hub] marshal event %s: %v", ev.Type, err)
		return
	}
	h.Broadcast(identity, out)
}
