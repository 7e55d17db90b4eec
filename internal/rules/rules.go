package rules

import (
	"sync"
)

// Rule is one form-behavior rule as rendered by the rule board. The board
// treats rules as opaque records keyed by ID; only the summary is touched
// server-side (MarkRuleSaved appends a saved marker).
type Rule struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Target  Target      `json:"target"`
	When    []Condition `json:"when"`
	Action  Action      `json:"action"`
	Summary string      `json:"summary,omitempty"`
}

type Target struct {
	Field string `json:"field"`
}

type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type Action struct {
	Kind      string         `json:"kind"`
	Visible   *bool          `json:"visible,omitempty"`
	Enabled   *bool          `json:"enabled,omitempty"`
	Required  *bool          `json:"required,omitempty"`
	Validator string         `json:"validator,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Mode      string         `json:"mode,omitempty"`
	Options   []string       `json:"options,omitempty"`
}

// Store is the rule data collaborator the hub calls into. Rule mutation
// semantics beyond the saved marker live outside this service.
type Store interface {
	ListRules(room string) []Rule
	MarkRuleSaved(room, ruleID string)
}

// MemoryStore keeps per-room rule lists in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byRoom map[string][]Rule
}

func NewMemoryStore(byRoom map[string][]Rule) *MemoryStore {
	if byRoom == nil {
		byRoom = make(map[string][]Rule)
	}
	return &MemoryStore{byRoom: byRoom}
}

// ListRules returns a point-in-time copy of the room's rule list. Unknown
// rooms yield an empty list, not an error.
func (s *MemoryStore) ListRules(room string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byRoom[room]
	out := make([]Rule, len(list))
	copy(out, list)
	return out
}

// MarkRuleSaved appends a saved marker to the rule's summary. Unknown rooms
// or rule IDs are a no-op.
func (s *MemoryStore) MarkRuleSaved(room, ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byRoom[room]
	for i := range list {
		if list[i].ID == ruleID {
			list[i].Summary = list[i].Summary + " (saved)"
			return
		}
	}
}
