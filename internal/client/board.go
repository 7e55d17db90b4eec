package client

import (
	"sync"

	"log/slog"

	"ruleboard/internal/protocol"
	"ruleboard/internal/rules"
)

// BoardHandlers receives the rule board channel's events. Nil fields are
// skipped.
type BoardHandlers struct {
	Subscribed       func(room string)
	Unsubscribed     func(room string)
	PresenceSnapshot func(users []protocol.User)
	UserJoined       func(user protocol.User)
	UserLeft         func(userID string)
	RulesSnapshot    func(room string, list []rules.Rule)
	EditStarted      func(ev protocol.EditEvent)
	EditCancelled    func(ev protocol.EditEvent)
	RuleSaved        func(ev protocol.EditEvent)
	RoomCounts       func(counts map[string]int)
	Error            func(message string)
}

// Board is the client-side rule board channel: room subscription, the
// current room's rule list and presence, and edit-intent commands.
type Board struct {
	tr       *Transport
	session  *Session
	handlers BoardHandlers

	mu       sync.Mutex
	room     string // the actively targeted room; snapshots for others are stale
	list     []rules.Rule
	presence []protocol.User
	counts   map[string]int

	unsubMsgs Unsubscribe
}

func NewBoard(tr *Transport, session *Session, handlers BoardHandlers) *Board {
	b := &Board{
		tr:       tr,
		session:  session,
		handlers: handlers,
	}
	b.unsubMsgs = tr.OnMessage(b.onMessage)
	return b
}

func (b *Board) Close() {
	b.unsubMsgs()
}

// SetRoom switches the board to a new room. The session handles the
// unsubscribe/subscribe sequencing; the board records the target so that
// late snapshots for the previous room are discarded.
func (b *Board) SetRoom(room string) {
	b.mu.Lock()
	if b.room != room {
		b.room = room
		b.list = nil
		b.presence = nil
	}
	b.mu.Unlock()

	b.session.SetRoom(room)
}

func (b *Board) Room() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.room
}

// Rules returns the current room's rule list as of the last snapshot.
func (b *Board) Rules() []rules.Rule {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]rules.Rule, len(b.list))
	copy(out, b.list)
	return out
}

// Presence returns the current room's user list as of the last snapshot
// plus join/leave events.
func (b *Board) Presence() []protocol.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]protocol.User, len(b.presence))
	copy(out, b.presence)
	return out
}

// Counts returns the latest global per-room occupancy view.
func (b *Board) Counts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.counts))
	for room, n := range b.counts {
		out[room] = n
	}
	return out
}

// StartEdit announces edit intent for a rule. No-ops unless the session is
// ready; commands are never queued.
func (b *Board) StartEdit(ruleID string) bool {
	return b.sendCommand(protocol.StartEdit{Type: protocol.TypeStartEdit, RuleID: ruleID})
}

func (b *Board) CancelEdit(ruleID string) bool {
	return b.sendCommand(protocol.CancelEdit{Type: protocol.TypeCancelEdit, RuleID: ruleID})
}

func (b *Board) SaveRule(ruleID string) bool {
	return b.sendCommand(protocol.SaveRule{Type: protocol.TypeSaveRule, RuleID: ruleID})
}

func (b *Board) sendCommand(v any) bool {
	if !b.session.Ready() {
		return false
	}
	return b.tr.Send(v)
}

func (b *Board) onMessage(env protocol.Envelope) {
	event, ok := protocol.DecodeBoardEvent(env)
	if !ok {
		return
	}

	switch m := event.(type) {
	case protocol.Subscribed:
		if b.handlers.Subscribed != nil {
			b.handlers.Subscribed(m.Room)
		}

	case protocol.Unsubscribed:
		if b.handlers.Unsubscribed != nil {
			b.handlers.Unsubscribed(m.Room)
		}

	case protocol.PresenceSnapshot:
		b.mu.Lock()
		b.presence = m.Users
		b.mu.Unlock()
		if b.handlers.PresenceSnapshot != nil {
			b.handlers.PresenceSnapshot(m.Users)
		}

	case protocol.UserJoined:
		b.mu.Lock()
		b.presence = appendUser(b.presence, m.User)
		b.mu.Unlock()
		if b.handlers.UserJoined != nil {
			b.handlers.UserJoined(m.User)
		}

	case protocol.UserLeft:
		b.mu.Lock()
		b.presence = removeUser(b.presence, m.UserID)
		b.mu.Unlock()
		if b.handlers.UserLeft != nil {
			b.handlers.UserLeft(m.UserID)
		}

	case protocol.RulesSnapshot:
		b.mu.Lock()
		if m.Room != b.room {
			// A snapshot for a room we have since navigated away from;
			// it must never overwrite the current room's list.
			b.mu.Unlock()
			slog.Debug("Discarding stale rules snapshot", "room", m.Room, "current", b.room)
			return
		}
		b.list = m.Rules
		b.mu.Unlock()
		if b.handlers.RulesSnapshot != nil {
			b.handlers.RulesSnapshot(m.Room, m.Rules)
		}

	case protocol.RoomCounts:
		b.mu.Lock()
		b.counts = m.Counts
		b.mu.Unlock()
		if b.handlers.RoomCounts != nil {
			b.handlers.RoomCounts(m.Counts)
		}

	case protocol.EditEvent:
		switch m.Type {
		case protocol.TypeEditStarted:
			if b.handlers.EditStarted != nil {
				b.handlers.EditStarted(m)
			}
		case protocol.TypeEditCancelled:
			if b.handlers.EditCancelled != nil {
				b.handlers.EditCancelled(m)
			}
		case protocol.TypeRuleSaved:
			if b.handlers.RuleSaved != nil {
				b.handlers.RuleSaved(m)
			}
		}

	case protocol.ServerError:
		if b.handlers.Error != nil {
			b.handlers.Error(m.Message)
		}
	}
}

// appendUser and removeUser always build a fresh slice: the previous one
// may still be held by a PresenceSnapshot handler.
func appendUser(users []protocol.User, user protocol.User) []protocol.User {
	for _, u := range users {
		if u.UserID == user.UserID {
			return users
		}
	}
	out := make([]protocol.User, 0, len(users)+1)
	out = append(out, users...)
	return append(out, user)
}

func removeUser(users []protocol.User, userID string) []protocol.User {
	out := make([]protocol.User, 0, len(users))
	for _, u := range users {
		if u.UserID != userID {
			out = append(out, u)
		}
	}
	return out
}
