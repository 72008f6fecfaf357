package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"spookify/logger"

	"github.com/gorilla/websocket"
)

// Event types pushed to connected clients after successful mutations, so
// clients holding stale copies know to refetch.
const (
	EventPlaylistsChanged = "playlists_changed"
	EventLyricsChanged    = "lyrics_changed"
)

// Event is one change notification.
type Event struct {
	Type       string    `json:"type"`
	PlaylistID int64     `json:"playlistId,omitempty"`
	SongID     int64     `json:"songId,omitempty"`
	At         time.Time `json:"at"`
}

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans change notifications out to websocket subscribers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Broadcast sends an event to every connected client. Clients that fail the
// write are evicted. Safe on a nil hub.
func (h *Hub) Broadcast(event Event) {
	if h == nil {
		return
	}
	event.At = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("[Events] Failed to marshal event", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("[Events] Dropping dead client", logger.ErrorField(err))
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ServeWS upgrades the connection and registers it with the hub. Incoming
// messages are discarded; the socket only pushes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[Events] Upgrade failed", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	logger.Info("[Events] Client connected", logger.Int("clients", count))

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
