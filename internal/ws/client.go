package ws

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 16
)

// envelope is the JSON frame exchanged with the browser client.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type connection struct {
	id     string
	userID int64
	sock   *websocket.Conn
	hub    *Hub

	send chan envelope
	done chan struct{}
	once sync.Once
}

func newConnection(id string, userID int64, sock *websocket.Conn, hub *Hub) *connection {
	return &connection{
		id:     id,
		userID: userID,
		sock:   sock,
		hub:    hub,
		send:   make(chan envelope, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// enqueue hands a frame to the writer goroutine. A connection with a full
// queue is treated as dead rather than allowed to block the emitter.
func (c *connection) enqueue(ev envelope) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		c.hub.logger.WithField("conn", c.id).Warn("send queue full, dropping connection")
		c.close()
	}
}

// close is safe to call from any goroutine and runs cleanup exactly once,
// including after abrupt network loss.
func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.drop(c)
		_ = c.sock.Close()
	})
}

func (c *connection) readPump() {
	defer c.close()

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame inboundFrame
		if err := c.sock.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithField("conn", c.id).Debugf("websocket read: %v", err)
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *connection) handleFrame(frame inboundFrame) {
	switch frame.Event {
	case EventRegisterUser:
		// The connection already carries the authenticated user; the
		// payload id from the client is advisory only.
		if claimed, err := decodeID(frame.Data); err == nil && claimed != c.userID {
			c.hub.logger.WithFields(logrus.Fields{
				"conn": c.id, "user": c.userID, "claimed": claimed,
			}).Warn("registerUser id mismatch, using authenticated user")
		}
		c.hub.presence.Register(c.userID, c.id)
	case EventJoinTask:
		taskID, err := decodeID(frame.Data)
		if err != nil {
			c.hub.logger.WithField("conn", c.id).Warnf("joinTask payload: %v", err)
			return
		}
		c.hub.joinRoom(c, TaskRoom(taskID))
	default:
		c.hub.logger.WithField("conn", c.id).Debugf("ignoring unknown event %q", frame.Event)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeID accepts a JSON number or numeric string, the two shapes clients
// send ids in.
func decodeID(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
