package protocol

import (
	"encoding/json"
	"errors"

	"ruleboard/internal/rules"
)

// MessageType tags every wire envelope.
type MessageType string

const (
	// Client to server
	TypeHello       MessageType = "HELLO"
	TypeSubscribe   MessageType = "SUBSCRIBE"
	TypeUnsubscribe MessageType = "UNSUBSCRIBE"
	TypeStartEdit   MessageType = "START_EDIT"
	TypeCancelEdit  MessageType = "CANCEL_EDIT"
	TypeSaveRule    MessageType = "SAVE_RULE"
	TypeNotifPush   MessageType = "NOTIF_PUSH"

	// Server to client
	TypeWelcome          MessageType = "WELCOME"
	TypeSubscribed       MessageType = "SUBSCRIBED"
	TypeUnsubscribed     MessageType = "UNSUBSCRIBED"
	TypePresenceSnapshot MessageType = "PRESENCE_SNAPSHOT"
	TypeUserJoined       MessageType = "USER_JOINED"
	TypeUserLeft         MessageType = "USER_LEFT"
	TypeRulesSnapshot    MessageType = "RULES_SNAPSHOT"
	TypeEditStarted      MessageType = "EDIT_STARTED"
	TypeEditCancelled    MessageType = "EDIT_CANCELLED"
	TypeRuleSaved        MessageType = "RULE_SAVED"
	TypeNotifPushed      MessageType = "NOTIF_PUSHED"
	TypeRoomCounts       MessageType = "ROOM_COUNTS"
	TypeError            MessageType = "ERROR"

	// Both directions: the client sends a read receipt, the server echoes
	// it to the whole room under the same tag.
	TypeNotifRead MessageType = "NOTIF_READ"
)

func (mt MessageType) String() string {
	return string(mt)
}

var ErrMissingType = errors.New("envelope has no type field")

// Envelope is a partially decoded wire frame: the tag plus the raw bytes so
// each channel can unmarshal into its own closed variant set.
type Envelope struct {
	Type MessageType
	Raw  json.RawMessage
}

// DecodeEnvelope parses the outer {type, ...} shape. Callers drop malformed
// frames silently; a decode error must never take the link down.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, err
	}
	if head.Type == "" {
		return Envelope{}, ErrMissingType
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

// User identifies a session on the wire.
type User struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Notification is a server-stamped room notification.
type Notification struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	FromUserID      string `json:"fromUserId"`
	FromDisplayName string `json:"fromDisplayName"`
	TS              int64  `json:"ts"`
}

// Client to server messages.

type Hello struct {
	Type        MessageType `json:"type"`
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
}

type Subscribe struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

type Unsubscribe struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

type StartEdit struct {
	Type   MessageType `json:"type"`
	RuleID string      `json:"ruleId"`
}

type CancelEdit struct {
	Type   MessageType `json:"type"`
	RuleID string      `json:"ruleId"`
}

type SaveRule struct {
	Type   MessageType `json:"type"`
	RuleID string      `json:"ruleId"`
}

type NotifPush struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type NotifRead struct {
	Type    MessageType `json:"type"`
	NotifID string      `json:"notifId"`
}

// Server to client messages.

type Welcome struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connectionId"`
}

type Subscribed struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

type Unsubscribed struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

type PresenceSnapshot struct {
	Type  MessageType `json:"type"`
	Users []User      `json:"users"`
}

type UserJoined struct {
	Type MessageType `json:"type"`
	User User        `json:"user"`
}

type UserLeft struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

type RulesSnapshot struct {
	Type  MessageType  `json:"type"`
	Room  string       `json:"room"`
	Rules []rules.Rule `json:"rules"`
}

// EditEvent carries EDIT_STARTED, EDIT_CANCELLED and RULE_SAVED, which
// share a payload and differ only in tag.
type EditEvent struct {
	Type        MessageType `json:"type"`
	RuleID      string      `json:"ruleId"`
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
}

type NotifPushed struct {
	Type  MessageType  `json:"type"`
	Notif Notification `json:"notif"`
}

type NotifReadEcho struct {
	Type          MessageType `json:"type"`
	NotifID       string      `json:"notifId"`
	ByUserID      string      `json:"byUserId"`
	ByDisplayName string      `json:"byDisplayName"`
}

type RoomCounts struct {
	Type   MessageType    `json:"type"`
	Counts map[string]int `json:"counts"`
}

type ServerError struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
