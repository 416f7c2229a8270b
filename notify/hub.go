package notify

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ashwinsom/curryleaf/utils"
)

// Event types pushed to connected admin dashboards.
const (
	EventOrderCreated    = "order_created"
	EventAlertsUpdate    = "alerts_update"
	EventInventoryUpdate = "inventory_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub fans events out to every connected admin websocket. A dead
// connection is dropped on its first failed write.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

func (h *Hub) OrderCreated(data interface{}) {
	h.broadcast(Message{Event: EventOrderCreated, Data: data})
}

func (h *Hub) AlertsUpdated(data interface{}) {
	h.broadcast(Message{Event: EventAlertsUpdate, Data: data})
}

func (h *Hub) InventoryUpdated(data interface{}) {
	h.broadcast(Message{Event: EventInventoryUpdate, Data: data})
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.Printf("websocket write failed, dropping client: %v", err)
			}
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
