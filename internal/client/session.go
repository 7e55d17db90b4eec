package client

import (
	"sync"

	"log/slog"

	"ruleboard/internal/protocol"
)

// Session is the logical (userId, displayName) identity riding on a
// Transport. It survives physical reconnects: every new connected status
// re-announces the identity, because the peer's knowledge of it reset with
// the link.
type Session struct {
	tr          *Transport
	userID      string
	displayName string

	mu sync.Mutex
	// Identity key announced on the current physical connection instance;
	// empty until HELLO has been sent on it.
	announcedKey   string
	status         Status
	desiredRoom    string
	subscribedRoom string
	connectionID   string

	unsubStatus Unsubscribe
	unsubMsgs   Unsubscribe
}

func NewSession(tr *Transport, userID, displayName string) *Session {
	s := &Session{
		tr:          tr,
		userID:      userID,
		displayName: displayName,
		status:      StatusDisconnected,
	}

	s.unsubMsgs = tr.OnMessage(s.onMessage)
	s.unsubStatus = tr.OnStatus(s.onStatus)
	return s
}

// Close detaches the session from the transport. It does not close the
// transport itself.
func (s *Session) Close() {
	s.unsubMsgs()
	s.unsubStatus()
}

func (s *Session) helloKey() string {
	return s.userID + "|" + s.displayName
}

func (s *Session) onStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.status
	s.status = status

	if status != StatusConnected {
		if prev == StatusConnected {
			// The physical link reset: the server forgot both the identity
			// and the room subscription.
			s.announcedKey = ""
			s.subscribedRoom = ""
		}
		return
	}

	// Idempotent across duplicate connected callbacks: the key is only
	// announced once per physical connection instance.
	if key := s.helloKey(); s.announcedKey != key {
		s.tr.Send(protocol.Hello{
			Type:        protocol.TypeHello,
			UserID:      s.userID,
			DisplayName: s.displayName,
		})
		s.announcedKey = key
	}

	s.syncRoomLocked()
}

// SetRoom records the single room the session wants to observe. An empty
// room means none. The subscription is issued now if the transport is
// connected, otherwise on the next connected transition.
func (s *Session) SetRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.desiredRoom = room
	if s.status == StatusConnected && s.announcedKey != "" {
		s.syncRoomLocked()
	}
}

// syncRoomLocked reconciles the subscribed room with the desired one:
// unsubscribe the previous room first so the server emits an authoritative
// leave/join pair, then subscribe. The recorded room is updated only after
// the subscribe is issued.
func (s *Session) syncRoomLocked() {
	if s.subscribedRoom == s.desiredRoom {
		return
	}

	if s.subscribedRoom != "" {
		s.tr.Send(protocol.Unsubscribe{Type: protocol.TypeUnsubscribe, Room: s.subscribedRoom})
		s.subscribedRoom = ""
	}

	if s.desiredRoom != "" {
		s.tr.Send(protocol.Subscribe{Type: protocol.TypeSubscribe, Room: s.desiredRoom})
		s.subscribedRoom = s.desiredRoom
	}
}

func (s *Session) onMessage(env protocol.Envelope) {
	event, ok := protocol.DecodeSessionEvent(env)
	if !ok {
		return
	}

	switch m := event.(type) {
	case protocol.Welcome:
		s.mu.Lock()
		s.connectionID = m.ConnectionID
		s.mu.Unlock()

	case protocol.ServerError:
		// Connection-scoped and recoverable; surfaced, never fatal.
		slog.Warn("Server error", "userId", s.userID, "message", m.Message)
	}
}

// Ready reports whether the identity has been announced for the current
// key and the transport is connected. Commands must no-op when not ready;
// there is no outbound queue.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusConnected && s.announcedKey == s.helloKey()
}

func (s *Session) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) DisplayName() string {
	return s.displayName
}

// Room returns the room the session last issued a subscribe for.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribedRoom
}
