package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// Hub tracks TCP and WebSocket subscribers per user.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]map[net.Conn]struct{}
	wsClients map[string]map[*websocket.Conn]struct{}
	logger    *log.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
	Users      int `json:"users"`
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:   make(map[string]map[net.Conn]struct{}),
		wsClients: make(map[string]map[*websocket.Conn]struct{}),
		logger:    logger,
	}
}

func (h *Hub) Add(userID string, conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[net.Conn]struct{})
	}
	h.clients[userID][conn] = struct{}{}
}

func (h *Hub) Remove(userID string, conn net.Conn) {
	h.mu.Lock()
	h.dropTCP(userID, conn)
	h.mu.Unlock()
}

func (h *Hub) AddWS(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wsClients[userID] == nil {
		h.wsClients[userID] = make(map[*websocket.Conn]struct{})
	}
	h.wsClients[userID][ws] = struct{}{}
}

func (h *Hub) RemoveWS(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	h.dropWS(userID, ws)
	h.mu.Unlock()
}

// Publish implements Publisher.
func (h *Hub) Publish(ev UserEvent) {
	if err := h.SendJSON(ev.UserID, ev); err != nil {
		h.logger.Printf("[sync] publish %s: %v", ev.Type, err)
	}
}

// SendJSON writes v as one JSON line to every connection of userID.
// Connections that fail to accept the write are dropped.
func (h *Hub) SendJSON(userID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[userID] {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			h.dropTCP(userID, c)
			continue
		}
		if err := w.Flush(); err != nil {
			h.dropTCP(userID, c)
		}
	}

	for ws := range h.wsClients[userID] {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.dropWS(userID, ws)
		}
	}
	return nil
}

// Welcome greets a newly added TCP connection. Writes share the hub lock
// so they never interleave with published events.
func (h *Hub) Welcome(userID string, conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = fmt.Fprintf(conn, "{\"type\":\"welcome\",\"transport\":\"tcp\",\"userId\":%q}\n", userID)
}

// WelcomeWS greets a newly added WebSocket connection.
func (h *Hub) WelcomeWS(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = ws.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("{\"type\":\"welcome\",\"transport\":\"websocket\",\"userId\":%q}\n", userID)))
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	var s Stats
	users := make(map[string]struct{})
	for id, set := range h.clients {
		s.TCPClients += len(set)
		users[id] = struct{}{}
	}
	for id, set := range h.wsClients {
		s.WSClients += len(set)
		users[id] = struct{}{}
	}
	s.Users = len(users)
	return s
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			h.dropTCP(id, c)
		}
	}
	for id, set := range h.wsClients {
		for ws := range set {
			h.dropWS(id, ws)
		}
	}
}

// dropTCP and dropWS require h.mu.
func (h *Hub) dropTCP(userID string, c net.Conn) {
	if set, ok := h.clients[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
	_ = c.Close()
}

func (h *Hub) dropWS(userID string, ws *websocket.Conn) {
	if set, ok := h.wsClients[userID]; ok {
		delete(set, ws)
		if len(set) == 0 {
			delete(h.wsClients, userID)
		}
	}
	_ = ws.Close()
}
