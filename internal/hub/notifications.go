package hub

import "ruleboard/internal/protocol"

// DefaultFeedCapacity bounds each room's notification feed. The feed is a
// ring: pushing onto a full feed evicts the oldest record.
const DefaultFeedCapacity = 256

type notifRecord struct {
	notif  protocol.Notification
	readBy map[string]struct{}
}

// notifFeeds keeps the per-room notification history the hub needs to
// record NOTIF_READ acknowledgements. Only the Run goroutine touches it.
type notifFeeds struct {
	capacity int
	byRoom   map[string][]*notifRecord
}

func newNotifFeeds(capacity int) *notifFeeds {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &notifFeeds{
		capacity: capacity,
		byRoom:   make(map[string][]*notifRecord),
	}
}

func (f *notifFeeds) push(room string, notif protocol.Notification) {
	feed := append(f.byRoom[room], &notifRecord{
		notif:  notif,
		readBy: make(map[string]struct{}),
	})
	if len(feed) > f.capacity {
		feed = feed[len(feed)-f.capacity:]
	}
	f.byRoom[room] = feed
}

// markRead records a reader on a notification. Marking the same reader
// twice leaves the set unchanged. Unknown IDs are ignored; the record may
// have been evicted from the ring.
func (f *notifFeeds) markRead(room, notifID, byDisplayName string) {
	for _, rec := range f.byRoom[room] {
		if rec.notif.ID == notifID {
			rec.readBy[byDisplayName] = struct{}{}
			return
		}
	}
}

func (f *notifFeeds) readers(room, notifID string) int {
	for _, rec := range f.byRoom[room] {
		if rec.notif.ID == notifID {
			return len(rec.readBy)
		}
	}
	return 0
}

func (f *notifFeeds) size(room string) int {
	return len(f.byRoom[room])
}
