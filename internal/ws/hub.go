// Package ws is the live transport layer: long-lived WebSocket connections
// with two addressing modes, room broadcast and targeted emit.
package ws

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"taskboard/internal/presence"
)

// Wire event names shared with the browser client.
const (
	EventRegisterUser = "registerUser"
	EventJoinTask     = "joinTask"
	EventNewComment   = "newComment"
	EventNotify       = "notify"
)

// TaskRoom returns the room id that scopes broadcasts to viewers of a task.
func TaskRoom(taskID int64) string {
	return "task:" + strconv.FormatInt(taskID, 10)
}

type Config struct {
	Presence *presence.Registry
	Logger   *logrus.Logger

	// CheckOrigin overrides the upgrader origin check. Nil allows all
	// origins, matching the API's permissive CORS policy.
	CheckOrigin func(r *http.Request) bool
}

// Hub owns every live connection and its room memberships. Connections join
// rooms explicitly and are removed from everything implicitly on disconnect.
type Hub struct {
	presence *presence.Registry
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*connection
	rooms map[string]map[string]*connection
}

func NewHub(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		presence: cfg.Presence,
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		conns: make(map[string]*connection),
		rooms: make(map[string]map[string]*connection),
	}
}

// Serve upgrades the request and runs the connection until it closes. userID
// is the authenticated user the connection belongs to; presence binding still
// waits for an explicit registerUser signal from the client.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := newConnection(uuid.NewString(), userID, sock, h)

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{"conn": conn.id, "user": userID}).Debug("websocket connected")

	go conn.writePump()
	conn.readPump()
	return nil
}

// EmitToConn delivers one event to a single connection. A connection that has
// since closed is a no-op, not an error: the persisted notification record
// remains the source of truth.
func (h *Hub) EmitToConn(connID, event string, data any) {
	h.mu.Lock()
	conn := h.conns[connID]
	h.mu.Unlock()

	if conn == nil {
		return
	}
	conn.enqueue(envelope{Event: event, Data: data})
}

// EmitToRoom delivers one event to every connection currently in the room.
// An empty or unknown room is a no-op.
func (h *Hub) EmitToRoom(roomID, event string, data any) {
	h.mu.Lock()
	members := make([]*connection, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		members = append(members, conn)
	}
	h.mu.Unlock()

	for _, conn := range members {
		conn.enqueue(envelope{Event: event, Data: data})
	}
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

func (h *Hub) joinRoom(conn *connection, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*connection)
		h.rooms[roomID] = room
	}
	room[conn.id] = conn
}

// drop runs exactly once per connection, from connection.close. It removes
// the connection from the conn table and every room, and releases its
// presence entry.
func (h *Hub) drop(conn *connection) {
	h.mu.Lock()
	delete(h.conns, conn.id)
	for roomID, room := range h.rooms {
		delete(room, conn.id)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	h.presence.Unregister(conn.id)
	h.logger.WithFields(logrus.Fields{"conn": conn.id, "user": conn.userID}).Debug("websocket disconnected")
}
