package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

// ClientMessage is the closed set of commands the hub accepts. Anything
// outside this set answers with an ERROR reply, never a crash.
type ClientMessage interface{ clientMessage() }

func (Hello) clientMessage()       {}
func (Subscribe) clientMessage()   {}
func (Unsubscribe) clientMessage() {}
func (StartEdit) clientMessage()   {}
func (CancelEdit) clientMessage()  {}
func (SaveRule) clientMessage()    {}
func (NotifPush) clientMessage()   {}
func (NotifRead) clientMessage()   {}

// DecodeClientMessage maps an envelope to its typed command.
// ErrUnknownType marks tags outside the client-to-server set.
func DecodeClientMessage(env Envelope) (ClientMessage, error) {
	switch env.Type {
	case TypeHello:
		return decodeAs[Hello](env)
	case TypeSubscribe:
		return decodeAs[Subscribe](env)
	case TypeUnsubscribe:
		return decodeAs[Unsubscribe](env)
	case TypeStartEdit:
		return decodeAs[StartEdit](env)
	case TypeCancelEdit:
		return decodeAs[CancelEdit](env)
	case TypeSaveRule:
		return decodeAs[SaveRule](env)
	case TypeNotifPush:
		return decodeAs[NotifPush](env)
	case TypeNotifRead:
		return decodeAs[NotifRead](env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}

func decodeAs[T ClientMessage](env Envelope) (ClientMessage, error) {
	var m T
	if err := json.Unmarshal(env.Raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SessionEvent is the session channel's closed inbound set.
type SessionEvent interface{ sessionEvent() }

func (Welcome) sessionEvent()     {}
func (ServerError) sessionEvent() {}

// DecodeSessionEvent ignores envelopes outside the session channel set.
func DecodeSessionEvent(env Envelope) (SessionEvent, bool) {
	switch env.Type {
	case TypeWelcome:
		var m Welcome
		if json.Unmarshal(env.Raw, &m) != nil {
			return nil, false
		}
		return m, true
	case TypeError:
		var m ServerError
		if json.Unmarshal(env.Raw, &m) != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}

// BoardEvent is the rule board channel's closed inbound set: room
// membership, presence, rule snapshots and edit-intent fanout.
type BoardEvent interface{ boardEvent() }

func (Subscribed) boardEvent()       {}
func (Unsubscribed) boardEvent()     {}
func (PresenceSnapshot) boardEvent() {}
func (UserJoined) boardEvent()       {}
func (UserLeft) boardEvent()         {}
func (RulesSnapshot) boardEvent()    {}
func (EditEvent) boardEvent()        {}
func (RoomCounts) boardEvent()       {}
func (ServerError) boardEvent()      {}

// DecodeBoardEvent ignores envelopes outside the board channel set.
func DecodeBoardEvent(env Envelope) (BoardEvent, bool) {
	switch env.Type {
	case TypeSubscribed:
		return decodeBoard[Subscribed](env)
	case TypeUnsubscribed:
		return decodeBoard[Unsubscribed](env)
	case TypePresenceSnapshot:
		return decodeBoard[PresenceSnapshot](env)
	case TypeUserJoined:
		return decodeBoard[UserJoined](env)
	case TypeUserLeft:
		return decodeBoard[UserLeft](env)
	case TypeRulesSnapshot:
		return decodeBoard[RulesSnapshot](env)
	case TypeEditStarted, TypeEditCancelled, TypeRuleSaved:
		return decodeBoard[EditEvent](env)
	case TypeRoomCounts:
		return decodeBoard[RoomCounts](env)
	case TypeError:
		return decodeBoard[ServerError](env)
	default:
		return nil, false
	}
}

func decodeBoard[T BoardEvent](env Envelope) (BoardEvent, bool) {
	var m T
	if err := json.Unmarshal(env.Raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// NotifEvent is the notifications channel's closed inbound set.
type NotifEvent interface{ notifEvent() }

func (NotifPushed) notifEvent()   {}
func (NotifReadEcho) notifEvent() {}

// DecodeNotifEvent ignores envelopes outside the notifications channel set.
func DecodeNotifEvent(env Envelope) (NotifEvent, bool) {
	switch env.Type {
	case TypeNotifPushed:
		var m NotifPushed
		if json.Unmarshal(env.Raw, &m) != nil {
			return nil, false
		}
		return m, true
	case TypeNotifRead:
		var m NotifReadEcho
		if json.Unmarshal(env.Raw, &m) != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}
