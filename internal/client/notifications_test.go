package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleboard/internal/protocol"
)

func newDetachedNotifications(t *testing.T, handlers NotifHandlers) *Notifications {
	t.Helper()
	tr := NewTransport(Options{URL: "ws://127.0.0.1:0"})
	session := NewSession(tr, "u1", "Ada")
	notifs := NewNotifications(tr, session, handlers)
	t.Cleanup(func() {
		notifs.Close()
		session.Close()
		tr.Disconnect()
	})
	return notifs
}

func pushed(id, text, fromUserID, fromDisplayName string) protocol.NotifPushed {
	return protocol.NotifPushed{
		Type: protocol.TypeNotifPushed,
		Notif: protocol.Notification{
			ID:              id,
			Text:            text,
			FromUserID:      fromUserID,
			FromDisplayName: fromDisplayName,
			TS:              1700000000000,
		},
	}
}

func readEcho(notifID, byUserID, byDisplayName string) protocol.NotifReadEcho {
	return protocol.NotifReadEcho{
		Type:          protocol.TypeNotifRead,
		NotifID:       notifID,
		ByUserID:      byUserID,
		ByDisplayName: byDisplayName,
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	notifs := newDetachedNotifications(t, NotifHandlers{})

	notifs.onMessage(envOf(t, pushed("n1", "first", "u2", "Ben")))
	notifs.onMessage(envOf(t, pushed("n2", "second", "u2", "Ben")))

	items := notifs.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, "n1", items[1].ID)
}

func TestUnreadCountSkipsOwnNotifications(t *testing.T) {
	notifs := newDetachedNotifications(t, NotifHandlers{})

	notifs.onMessage(envOf(t, pushed("n1", "mine", "u1", "Ada")))
	notifs.onMessage(envOf(t, pushed("n2", "theirs", "u2", "Ben")))

	assert.Equal(t, 1, notifs.UnreadCount())
}

func TestUnreadCountOnlyDropsOnServerEcho(t *testing.T) {
	notifs := newDetachedNotifications(t, NotifHandlers{})

	notifs.onMessage(envOf(t, pushed("n1", "theirs", "u2", "Ben")))
	require.Equal(t, 1, notifs.UnreadCount())

	// MarkRead not being connected is a no-op; no optimistic update either.
	assert.False(t, notifs.MarkRead("n1"))
	assert.Equal(t, 1, notifs.UnreadCount())

	// Only the authoritative echo flips the count.
	notifs.onMessage(envOf(t, readEcho("n1", "u1", "Ada")))
	assert.Equal(t, 0, notifs.UnreadCount())
}

func TestReadMergeIsIdempotent(t *testing.T) {
	var reads int
	notifs := newDetachedNotifications(t, NotifHandlers{
		Read: func(string, string, string) { reads++ },
	})

	notifs.onMessage(envOf(t, pushed("n1", "hi", "u2", "Ben")))
	notifs.onMessage(envOf(t, readEcho("n1", "u3", "Cen")))
	notifs.onMessage(envOf(t, readEcho("n1", "u3", "Cen")))

	items := notifs.Items()
	require.Len(t, items, 1)
	assert.Len(t, items[0].ReadBy, 1)
	assert.Contains(t, items[0].ReadBy, "Cen")

	// The handler still fires per echo; the set just does not grow.
	assert.Equal(t, 2, reads)
}

func TestReadEchoForUnknownNotifIsIgnored(t *testing.T) {
	notifs := newDetachedNotifications(t, NotifHandlers{})

	notifs.onMessage(envOf(t, readEcho("ghost", "u2", "Ben")))
	assert.Empty(t, notifs.Items())
}

func TestPushNoOpWhenNotReady(t *testing.T) {
	notifs := newDetachedNotifications(t, NotifHandlers{})
	assert.False(t, notifs.Push("hello"))
}

func TestPushedHandlerFires(t *testing.T) {
	var texts []string
	notifs := newDetachedNotifications(t, NotifHandlers{
		Pushed: func(n protocol.Notification) { texts = append(texts, n.Text) },
	})

	notifs.onMessage(envOf(t, pushed("n1", "heads up", "u2", "Ben")))
	assert.Equal(t, []string{"heads up"}, texts)
}
