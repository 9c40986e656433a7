package ws

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/presence"
)

type hubHarness struct {
	hub      *Hub
	registry *presence.Registry
	server   *httptest.Server
}

func newHubHarness(t *testing.T) *hubHarness {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	registry := presence.NewRegistry()
	hub := NewHub(Config{Presence: registry, Logger: logger})

	// The user id normally comes from the JWT middleware; here it rides
	// in on a query parameter.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = hub.Serve(w, r, userID)
	}))

	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})
	return &hubHarness{hub: hub, registry: registry, server: server}
}

func (h *hubHarness) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev envelope
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_RegisterUserBindsPresence(t *testing.T) {
	h := newHubHarness(t)
	conn := h.dial(t, 7)

	require.NoError(t, conn.WriteJSON(envelope{Event: EventRegisterUser, Data: 7}))

	var connID string
	require.Eventually(t, func() bool {
		id, ok := h.registry.Lookup(7)
		connID = id
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	h.hub.EmitToConn(connID, EventNotify, map[string]any{"message": "hello"})

	ev := readEnvelope(t, conn)
	assert.Equal(t, EventNotify, ev.Event)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["message"])
}

func TestHub_RegisterUserIgnoresClaimedID(t *testing.T) {
	h := newHubHarness(t)
	conn := h.dial(t, 7)

	// Client claims a different id; the authenticated one wins.
	require.NoError(t, conn.WriteJSON(envelope{Event: EventRegisterUser, Data: 99}))

	require.Eventually(t, func() bool {
		_, ok := h.registry.Lookup(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := h.registry.Lookup(99)
	assert.False(t, ok)
}

func TestHub_JoinTaskReceivesRoomBroadcast(t *testing.T) {
	h := newHubHarness(t)
	viewer := h.dial(t, 1)
	outsider := h.dial(t, 2)

	require.NoError(t, viewer.WriteJSON(envelope{Event: EventJoinTask, Data: "42"}))

	require.Eventually(t, func() bool {
		h.hub.mu.Lock()
		defer h.hub.mu.Unlock()
		return len(h.hub.rooms[TaskRoom(42)]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.hub.EmitToRoom(TaskRoom(42), EventNewComment, map[string]any{"taskId": 42})

	ev := readEnvelope(t, viewer)
	assert.Equal(t, EventNewComment, ev.Event)

	// The outsider never joined the room and must stay silent.
	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray envelope
	assert.Error(t, outsider.ReadJSON(&stray))
}

func TestHub_EmitToUnknownConnIsNoop(t *testing.T) {
	h := newHubHarness(t)

	assert.NotPanics(t, func() {
		h.hub.EmitToConn("no-such-conn", EventNotify, nil)
		h.hub.EmitToRoom("no-such-room", EventNewComment, nil)
	})
}

func TestHub_DisconnectReleasesPresenceAndRooms(t *testing.T) {
	h := newHubHarness(t)
	conn := h.dial(t, 7)

	require.NoError(t, conn.WriteJSON(envelope{Event: EventRegisterUser, Data: 7}))
	require.NoError(t, conn.WriteJSON(envelope{Event: EventJoinTask, Data: 42}))

	require.Eventually(t, func() bool {
		_, ok := h.registry.Lookup(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		_, ok := h.registry.Lookup(7)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	h.hub.mu.Lock()
	defer h.hub.mu.Unlock()
	assert.Empty(t, h.hub.conns)
	assert.Empty(t, h.hub.rooms)
}

func TestHub_ReconnectMovesPresenceToNewConnection(t *testing.T) {
	h := newHubHarness(t)

	first := h.dial(t, 7)
	require.NoError(t, first.WriteJSON(envelope{Event: EventRegisterUser, Data: 7}))

	var firstConnID string
	require.Eventually(t, func() bool {
		id, ok := h.registry.Lookup(7)
		firstConnID = id
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	second := h.dial(t, 7)
	require.NoError(t, second.WriteJSON(envelope{Event: EventRegisterUser, Data: 7}))

	var secondConnID string
	require.Eventually(t, func() bool {
		id, ok := h.registry.Lookup(7)
		secondConnID = id
		return ok && id != firstConnID
	}, 2*time.Second, 10*time.Millisecond)

	// Targeted emits now reach the second connection only.
	h.hub.EmitToConn(secondConnID, EventNotify, map[string]any{"message": "again"})
	ev := readEnvelope(t, second)
	assert.Equal(t, EventNotify, ev.Event)

	// Closing the stale first connection must not evict the new binding.
	first.Close()
	time.Sleep(100 * time.Millisecond)
	id, ok := h.registry.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, secondConnID, id)
}
