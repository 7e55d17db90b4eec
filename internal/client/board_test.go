package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleboard/internal/protocol"
	"ruleboard/internal/rules"
)

// envOf marshals a server message and re-decodes it as the transport would.
func envOf(t *testing.T, v any) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	env, err := protocol.DecodeEnvelope(data)
	require.NoError(t, err)
	return env
}

// newDetachedBoard builds a board whose transport never connects, so
// events can be injected directly.
func newDetachedBoard(t *testing.T, handlers BoardHandlers) *Board {
	t.Helper()
	tr := NewTransport(Options{URL: "ws://127.0.0.1:0"})
	session := NewSession(tr, "u1", "Ada")
	board := NewBoard(tr, session, handlers)
	t.Cleanup(func() {
		board.Close()
		session.Close()
		tr.Disconnect()
	})
	return board
}

func TestBoardStoresSnapshotForCurrentRoom(t *testing.T) {
	board := newDetachedBoard(t, BoardHandlers{})
	board.SetRoom("billing")

	board.onMessage(envOf(t, protocol.RulesSnapshot{
		Type:  protocol.TypeRulesSnapshot,
		Room:  "billing",
		Rules: []rules.Rule{{ID: "BILL-201"}},
	}))

	list := board.Rules()
	require.Len(t, list, 1)
	assert.Equal(t, "BILL-201", list[0].ID)
}

func TestBoardDiscardsStaleSnapshot(t *testing.T) {
	var snapshots []string
	board := newDetachedBoard(t, BoardHandlers{
		RulesSnapshot: func(room string, _ []rules.Rule) {
			snapshots = append(snapshots, room)
		},
	})

	board.SetRoom("billing")
	board.onMessage(envOf(t, protocol.RulesSnapshot{
		Type:  protocol.TypeRulesSnapshot,
		Room:  "billing",
		Rules: []rules.Rule{{ID: "BILL-201"}},
	}))

	// Navigate away, then a snapshot for the old room arrives late.
	board.SetRoom("clinical")
	board.onMessage(envOf(t, protocol.RulesSnapshot{
		Type:  protocol.TypeRulesSnapshot,
		Room:  "billing",
		Rules: []rules.Rule{{ID: "BILL-999"}},
	}))

	assert.Empty(t, board.Rules())
	assert.Equal(t, []string{"billing"}, snapshots)

	// The current room's snapshot still lands.
	board.onMessage(envOf(t, protocol.RulesSnapshot{
		Type:  protocol.TypeRulesSnapshot,
		Room:  "clinical",
		Rules: []rules.Rule{{ID: "CLIN-301"}},
	}))
	require.Len(t, board.Rules(), 1)
	assert.Equal(t, "CLIN-301", board.Rules()[0].ID)
}

func TestBoardPresenceTracking(t *testing.T) {
	board := newDetachedBoard(t, BoardHandlers{})
	board.SetRoom("billing")

	board.onMessage(envOf(t, protocol.PresenceSnapshot{
		Type:  protocol.TypePresenceSnapshot,
		Users: []protocol.User{{UserID: "u1", DisplayName: "Ada"}},
	}))
	board.onMessage(envOf(t, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: protocol.User{UserID: "u2", DisplayName: "Ben"},
	}))
	// A repeated join for the same user must not duplicate the entry.
	board.onMessage(envOf(t, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: protocol.User{UserID: "u2", DisplayName: "Ben"},
	}))

	assert.Equal(t, []protocol.User{
		{UserID: "u1", DisplayName: "Ada"},
		{UserID: "u2", DisplayName: "Ben"},
	}, board.Presence())

	board.onMessage(envOf(t, protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: "u1"}))
	assert.Equal(t, []protocol.User{{UserID: "u2", DisplayName: "Ben"}}, board.Presence())
}

func TestBoardPresenceUpdatesLeaveHandlerSliceIntact(t *testing.T) {
	var snap []protocol.User
	board := newDetachedBoard(t, BoardHandlers{
		PresenceSnapshot: func(users []protocol.User) { snap = users },
	})
	board.SetRoom("billing")

	board.onMessage(envOf(t, protocol.PresenceSnapshot{
		Type: protocol.TypePresenceSnapshot,
		Users: []protocol.User{
			{UserID: "u1", DisplayName: "Ada"},
			{UserID: "u2", DisplayName: "Ben"},
		},
	}))
	board.onMessage(envOf(t, protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: "u1"}))
	board.onMessage(envOf(t, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: protocol.User{UserID: "u3", DisplayName: "Cen"},
	}))

	// The handler's retained slice still holds the snapshot as delivered.
	assert.Equal(t, []protocol.User{
		{UserID: "u1", DisplayName: "Ada"},
		{UserID: "u2", DisplayName: "Ben"},
	}, snap)
	assert.Equal(t, []protocol.User{
		{UserID: "u2", DisplayName: "Ben"},
		{UserID: "u3", DisplayName: "Cen"},
	}, board.Presence())
}

func TestBoardRoomCounts(t *testing.T) {
	var seen map[string]int
	board := newDetachedBoard(t, BoardHandlers{
		RoomCounts: func(counts map[string]int) { seen = counts },
	})

	board.onMessage(envOf(t, protocol.RoomCounts{
		Type:   protocol.TypeRoomCounts,
		Counts: map[string]int{"billing": 2, "clinical": 1},
	}))

	assert.Equal(t, map[string]int{"billing": 2, "clinical": 1}, seen)
	assert.Equal(t, map[string]int{"billing": 2, "clinical": 1}, board.Counts())
}

func TestBoardEditHandlersDispatchByTag(t *testing.T) {
	var started, cancelled, saved []string
	board := newDetachedBoard(t, BoardHandlers{
		EditStarted:   func(ev protocol.EditEvent) { started = append(started, ev.RuleID) },
		EditCancelled: func(ev protocol.EditEvent) { cancelled = append(cancelled, ev.RuleID) },
		RuleSaved:     func(ev protocol.EditEvent) { saved = append(saved, ev.RuleID) },
	})

	for _, tag := range []protocol.MessageType{
		protocol.TypeEditStarted, protocol.TypeEditCancelled, protocol.TypeRuleSaved,
	} {
		board.onMessage(envOf(t, protocol.EditEvent{
			Type: tag, RuleID: "BILL-201", UserID: "u2", DisplayName: "Ben",
		}))
	}

	assert.Equal(t, []string{"BILL-201"}, started)
	assert.Equal(t, []string{"BILL-201"}, cancelled)
	assert.Equal(t, []string{"BILL-201"}, saved)
}

func TestBoardCommandsNoOpWhenNotReady(t *testing.T) {
	board := newDetachedBoard(t, BoardHandlers{})

	assert.False(t, board.StartEdit("BILL-201"))
	assert.False(t, board.CancelEdit("BILL-201"))
	assert.False(t, board.SaveRule("BILL-201"))
}

func TestBoardIgnoresNotificationTraffic(t *testing.T) {
	board := newDetachedBoard(t, BoardHandlers{})

	board.onMessage(envOf(t, protocol.NotifPushed{
		Type:  protocol.TypeNotifPushed,
		Notif: protocol.Notification{ID: "n1", Text: "hi"},
	}))

	assert.Empty(t, board.Rules())
	assert.Empty(t, board.Presence())
}
