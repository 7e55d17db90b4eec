package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"ruleboard/internal/protocol"
	"ruleboard/internal/rules"
)

type inbound struct {
	conn *Conn
	data []byte
}

// Hub is the authoritative connection registry and room fanout. All
// registry and membership state is touched only from the Run goroutine, so
// every broadcast within a room is observed in the order the triggering
// events were processed.
type Hub struct {
	// Registered connections, keyed by connection. Presence and counts are
	// userId-deduplicated views over this connection-indexed registry.
	conns map[*Conn]struct{}

	register   chan *Conn
	unregister chan *Conn
	inbound    chan inbound

	rules rules.Store
	feeds *notifFeeds

	ctx    context.Context
	cancel context.CancelFunc
}

func New(store rules.Store, feedCapacity int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		conns:      make(map[*Conn]struct{}),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		inbound:    make(chan inbound),
		rules:      store,
		feeds:      newNotifFeeds(feedCapacity),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes all registry mutations on a single goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConn(conn)

		case conn := <-h.unregister:
			h.unregisterConn(conn)

		case in := <-h.inbound:
			h.handleInbound(in.conn, in.data)

		case <-h.ctx.Done():
			slog.Info("Hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerConn(c *Conn) {
	h.conns[c] = struct{}{}
	slog.Info("Connection registered", "connectionId", c.id)

	h.send(c, protocol.Welcome{Type: protocol.TypeWelcome, ConnectionID: c.id})
}

func (h *Hub) unregisterConn(c *Conn) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	c.closeSendChannel()
	c.close()

	slog.Info("Connection removed", "connectionId", c.id, "userId", c.userID)

	if room, ok := c.room.Room(); ok && c.hasIdentity() {
		h.broadcast(room, protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: c.userID})
	}
	h.emitRoomCounts()
}

func (h *Hub) handleInbound(c *Conn, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		// Malformed frames never get an error reply; the sender is not
		// identifiable at the frame level.
		slog.Debug("Dropping malformed frame", "connectionId", c.id, "error", err)
		return
	}

	msg, err := protocol.DecodeClientMessage(env)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			h.sendError(c, "Unknown message type")
		} else {
			slog.Debug("Dropping undecodable message", "connectionId", c.id, "type", env.Type, "error", err)
		}
		return
	}

	switch m := msg.(type) {
	case protocol.Hello:
		h.handleHello(c, m)
	case protocol.Subscribe:
		h.handleSubscribe(c, m)
	case protocol.Unsubscribe:
		h.handleUnsubscribe(c, m)
	case protocol.StartEdit:
		h.handleEdit(c, protocol.TypeEditStarted, m.RuleID)
	case protocol.CancelEdit:
		h.handleEdit(c, protocol.TypeEditCancelled, m.RuleID)
	case protocol.SaveRule:
		h.handleSaveRule(c, m)
	case protocol.NotifPush:
		h.handleNotifPush(c, m)
	case protocol.NotifRead:
		h.handleNotifRead(c, m)
	}
}

func (h *Hub) handleHello(c *Conn, m protocol.Hello) {
	// HELLO requires no prior state and overwrites a resent identity.
	c.userID = m.UserID
	c.displayName = m.DisplayName

	h.emitRoomCounts()
}

func (h *Hub) handleSubscribe(c *Conn, m protocol.Subscribe) {
	if !h.requireIdentity(c) {
		return
	}

	next := m.Room
	if next == "" {
		h.sendError(c, "Room name required")
		return
	}

	// Re-subscribing to the held room is an idempotent refresh: snapshots
	// go back to the requester, peers see nothing.
	if c.room.Is(next) {
		h.sendSubscribeSnapshots(c, next)
		return
	}

	if prev, ok := c.room.Room(); ok {
		h.broadcastExcept(prev, c, protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: c.userID})
	}

	c.room = InRoom(next)

	h.sendSubscribeSnapshots(c, next)
	h.broadcastExcept(next, c, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: protocol.User{UserID: c.userID, DisplayName: c.displayName},
	})
	h.emitRoomCounts()
}

func (h *Hub) sendSubscribeSnapshots(c *Conn, room string) {
	h.send(c, protocol.Subscribed{Type: protocol.TypeSubscribed, Room: room})
	h.send(c, protocol.PresenceSnapshot{Type: protocol.TypePresenceSnapshot, Users: h.roomUsers(room)})
	h.send(c, protocol.RulesSnapshot{
		Type:  protocol.TypeRulesSnapshot,
		Room:  room,
		Rules: h.rules.ListRules(room),
	})
}

func (h *Hub) handleUnsubscribe(c *Conn, m protocol.Unsubscribe) {
	if !h.requireIdentity(c) {
		return
	}
	if !c.room.Is(m.Room) {
		h.sendError(c, "Not subscribed to that room")
		return
	}

	prev := m.Room
	c.room = NoRoom()

	h.broadcastExcept(prev, c, protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: c.userID})
	h.send(c, protocol.Unsubscribed{Type: protocol.TypeUnsubscribed, Room: prev})
	h.emitRoomCounts()
}

func (h *Hub) handleEdit(c *Conn, eventType protocol.MessageType, ruleID string) {
	room, ok := h.requireRoom(c)
	if !ok {
		return
	}

	h.broadcast(room, protocol.EditEvent{
		Type:        eventType,
		RuleID:      ruleID,
		UserID:      c.userID,
		DisplayName: c.displayName,
	})
}

func (h *Hub) handleSaveRule(c *Conn, m protocol.SaveRule) {
	room, ok := h.requireRoom(c)
	if !ok {
		return
	}

	h.rules.MarkRuleSaved(room, m.RuleID)
	h.broadcast(room, protocol.EditEvent{
		Type:        protocol.TypeRuleSaved,
		RuleID:      m.RuleID,
		UserID:      c.userID,
		DisplayName: c.displayName,
	})
}

func (h *Hub) handleNotifPush(c *Conn, m protocol.NotifPush) {
	room, ok := h.requireRoom(c)
	if !ok {
		return
	}

	notif := protocol.Notification{
		ID:              uuid.New().String(),
		Text:            m.Text,
		FromUserID:      c.userID,
		FromDisplayName: c.displayName,
		TS:              time.Now().UnixMilli(),
	}
	h.feeds.push(room, notif)

	h.broadcast(room, protocol.NotifPushed{Type: protocol.TypeNotifPushed, Notif: notif})
}

func (h *Hub) handleNotifRead(c *Conn, m protocol.NotifRead) {
	room, ok := h.requireRoom(c)
	if !ok {
		return
	}

	h.feeds.markRead(room, m.NotifID, c.displayName)
	h.broadcast(room, protocol.NotifReadEcho{
		Type:          protocol.TypeNotifRead,
		NotifID:       m.NotifID,
		ByUserID:      c.userID,
		ByDisplayName: c.displayName,
	})
}

func (h *Hub) requireIdentity(c *Conn) bool {
	if !c.hasIdentity() {
		h.sendError(c, "Send HELLO first")
		return false
	}
	return true
}

func (h *Hub) requireRoom(c *Conn) (string, bool) {
	if !h.requireIdentity(c) {
		return "", false
	}
	room, ok := c.room.Room()
	if !ok {
		h.sendError(c, "Subscribe to a room first")
		return "", false
	}
	return room, true
}

// roomUsers returns the room's presence list, deduplicated by userId. A
// user holding several connections in the room appears once.
func (h *Hub) roomUsers(room string) []protocol.User {
	users := make([]protocol.User, 0)
	seen := make(map[string]struct{})

	for c := range h.conns {
		if !c.room.Is(room) || !c.hasIdentity() {
			continue
		}
		if _, dup := seen[c.userID]; dup {
			continue
		}
		seen[c.userID] = struct{}{}
		users = append(users, protocol.User{UserID: c.userID, DisplayName: c.displayName})
	}
	return users
}

// roomCounts maps every occupied room to its distinct-user count.
func (h *Hub) roomCounts() map[string]int {
	seenByRoom := make(map[string]map[string]struct{})

	for c := range h.conns {
		room, ok := c.room.Room()
		if !ok || c.userID == "" {
			continue
		}
		set := seenByRoom[room]
		if set == nil {
			set = make(map[string]struct{})
			seenByRoom[room] = set
		}
		set[c.userID] = struct{}{}
	}

	counts := make(map[string]int, len(seenByRoom))
	for room, set := range seenByRoom {
		counts[room] = len(set)
	}
	return counts
}

// emitRoomCounts broadcasts the global occupancy view to every connection
// regardless of room.
func (h *Hub) emitRoomCounts() {
	h.broadcastAll(protocol.RoomCounts{Type: protocol.TypeRoomCounts, Counts: h.roomCounts()})
}

func (h *Hub) send(c *Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal message", "connectionId", c.id, "error", err)
		return
	}
	c.Send(data)
}

func (h *Hub) sendError(c *Conn, message string) {
	h.send(c, protocol.ServerError{Type: protocol.TypeError, Message: message})
}

// broadcast fans a message out to every connection in the room, sender
// included. Connection-indexed: two tabs of the same user both receive it.
func (h *Hub) broadcast(room string, v any) {
	for c := range h.conns {
		if c.room.Is(room) {
			h.send(c, v)
		}
	}
}

func (h *Hub) broadcastExcept(room string, except *Conn, v any) {
	for c := range h.conns {
		if c == except {
			continue
		}
		if c.room.Is(room) {
			h.send(c, v)
		}
	}
}

func (h *Hub) broadcastAll(v any) {
	for c := range h.conns {
		h.send(c, v)
	}
}
