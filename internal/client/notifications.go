package client

import (
	"sync"

	"ruleboard/internal/protocol"
)

// NotifItem is one notification with its accumulated read-by set.
type NotifItem struct {
	protocol.Notification
	ReadBy map[string]struct{}
}

// NotifHandlers receives the notifications channel's events. Nil fields
// are skipped.
type NotifHandlers struct {
	Pushed func(notif protocol.Notification)
	Read   func(notifID, byUserID, byDisplayName string)
}

// Notifications is the client-side notification feed: newest first, with
// per-notification read-by sets merged from server NOTIF_READ echoes. The
// unread count never updates optimistically, only on the server's echo, so
// it cannot diverge from the authoritative multi-tab state.
type Notifications struct {
	tr       *Transport
	session  *Session
	handlers NotifHandlers

	mu    sync.Mutex
	items []*NotifItem

	unsubMsgs Unsubscribe
}

func NewNotifications(tr *Transport, session *Session, handlers NotifHandlers) *Notifications {
	n := &Notifications{
		tr:       tr,
		session:  session,
		handlers: handlers,
	}
	n.unsubMsgs = tr.OnMessage(n.onMessage)
	return n
}

func (n *Notifications) Close() {
	n.unsubMsgs()
}

// Push sends a notification to the session's room. No-ops unless the
// session is ready.
func (n *Notifications) Push(text string) bool {
	if !n.session.Ready() {
		return false
	}
	return n.tr.Send(protocol.NotifPush{Type: protocol.TypeNotifPush, Text: text})
}

// MarkRead is fire-and-forget: the local read-by set only changes when the
// server's echo arrives.
func (n *Notifications) MarkRead(notifID string) bool {
	if !n.session.Ready() {
		return false
	}
	return n.tr.Send(protocol.NotifRead{Type: protocol.TypeNotifRead, NotifID: notifID})
}

// Items returns the feed newest first.
func (n *Notifications) Items() []NotifItem {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]NotifItem, 0, len(n.items))
	for _, item := range n.items {
		readBy := make(map[string]struct{}, len(item.ReadBy))
		for name := range item.ReadBy {
			readBy[name] = struct{}{}
		}
		out = append(out, NotifItem{Notification: item.Notification, ReadBy: readBy})
	}
	return out
}

// UnreadCount counts notifications not authored by this session and not
// yet read by its display name.
func (n *Notifications) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, item := range n.items {
		if item.FromUserID == n.session.UserID() {
			continue
		}
		if _, read := item.ReadBy[n.session.DisplayName()]; read {
			continue
		}
		count++
	}
	return count
}

func (n *Notifications) onMessage(env protocol.Envelope) {
	event, ok := protocol.DecodeNotifEvent(env)
	if !ok {
		return
	}

	switch m := event.(type) {
	case protocol.NotifPushed:
		n.mu.Lock()
		n.items = append([]*NotifItem{{
			Notification: m.Notif,
			ReadBy:       make(map[string]struct{}),
		}}, n.items...)
		n.mu.Unlock()
		if n.handlers.Pushed != nil {
			n.handlers.Pushed(m.Notif)
		}

	case protocol.NotifReadEcho:
		n.mu.Lock()
		for _, item := range n.items {
			if item.ID == m.NotifID {
				// Merging the same reader twice is a no-op.
				item.ReadBy[m.ByDisplayName] = struct{}{}
				break
			}
		}
		n.mu.Unlock()
		if n.handlers.Read != nil {
			n.handlers.Read(m.NotifID, m.ByUserID, m.ByDisplayName)
		}
	}
}
