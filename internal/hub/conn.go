package hub

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// RoomState is a connection's room membership: no room, or exactly one.
// Only the SUBSCRIBE/UNSUBSCRIBE handlers transition it.
type RoomState struct {
	name   string
	joined bool
}

func NoRoom() RoomState {
	return RoomState{}
}

func InRoom(name string) RoomState {
	return RoomState{name: name, joined: true}
}

// Room returns the room name and whether the connection is in one.
func (r RoomState) Room() (string, bool) {
	return r.name, r.joined
}

// Is reports membership in the named room.
func (r RoomState) Is(name string) bool {
	return r.joined && r.name == name
}

// Conn is one live websocket connection. The identity and room fields are
// owned by the hub's Run goroutine and never touched elsewhere.
type Conn struct {
	id   string
	hub  *Hub
	sock *websocket.Conn
	send chan []byte

	// Hub-owned state, set by HELLO and SUBSCRIBE/UNSUBSCRIBE.
	userID      string
	displayName string
	room        RoomState

	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32
	sendClosed int32

	wg sync.WaitGroup
}

func newConn(hub *Hub, sock *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		id:     uuid.New().String(),
		hub:    hub,
		sock:   sock,
		send:   make(chan []byte, 256),
		room:   NoRoom(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) hasIdentity() bool {
	return c.userID != "" && c.displayName != ""
}

func (c *Conn) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Conn) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

func (c *Conn) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// Send queues data for the write pump. Best-effort: a full buffer drops the
// connection rather than blocking the hub's processing sequence.
func (c *Conn) Send(data []byte) bool {
	if c.isClosed() {
		return false
	}

	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	default:
		slog.Warn("Send buffer full, dropping connection", "connectionId", c.id, "userId", c.userID)
		// Mark closed before closing the channel so no later fanout can
		// reach the send below and panic. The hub still holds the conn in
		// its registry; request removal off the hub goroutine.
		c.close()
		c.closeSendChannel()
		go func() {
			select {
			case c.hub.unregister <- c:
			case <-time.After(5 * time.Second):
				slog.Warn("Timeout sending unregister request", "connectionId", c.id)
			}
		}()
		return false
	}
}

func (c *Conn) readPump() {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "connectionId", c.id)
		}

		c.sock.Close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "connectionId", c.id, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "connectionId", c.id, "error", err)
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{conn: c, data: data}:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending message to hub", "connectionId", c.id)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing message", "connectionId", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an HTTP request and hands the connection to the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	conn := newConn(hub, sock)
	slog.Info("New WebSocket connection established", "connectionId", conn.id)

	select {
	case hub.register <- conn:
	case <-time.After(5 * time.Second):
		slog.Error("Timeout sending registration request", "connectionId", conn.id)
		sock.Close()
		return
	}

	go conn.writePump()
	go conn.readPump()
}
