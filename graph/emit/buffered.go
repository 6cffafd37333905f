package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, grouped by
// session.
//
// It backs the session history endpoint and is handy in tests. Each session
// keeps at most limit events (oldest dropped first); a limit of zero keeps
// everything. Clear a session's history when the session is deleted.
//
// Example usage:
//
//	history := emit.NewBufferedEmitter(500)
//	engine, _ := graph.New(g, st, graph.WithEmitter(history))
//
//	suspends := history.GetHistoryWithFilter(id, emit.HistoryFilter{Msg: emit.MsgSuspend})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // sessionID -> events
	limit  int
}

// HistoryFilter specifies criteria for filtering execution history.
//
// All fields are optional. When several are set they are combined with AND.
type HistoryFilter struct {
	NodeID  string // Filter by node ID (empty = no filter)
	Msg     string // Filter by message (empty = no filter)
	MinStep *int   // Minimum step number (nil = no filter)
	MaxStep *int   // Maximum step number (nil = no filter)
}

// NewBufferedEmitter creates a BufferedEmitter keeping up to limit events per
// session (0 = unlimited).
func NewBufferedEmitter(limit int) *BufferedEmitter {
	if limit < 0 {
		limit = 0
	}
	return &BufferedEmitter{
		events: make(map[string][]Event),
		limit:  limit,
	}
}

// Emit stores the event under its session ID.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := append(b.events[event.SessionID], event)
	if b.limit > 0 && len(events) > b.limit {
		events = append([]Event(nil), events[len(events)-b.limit:]...)
	}
	b.events[event.SessionID] = events
}

// GetHistory returns a copy of all events recorded for a session.
func (b *BufferedEmitter) GetHistory(sessionID string) []Event {
	return b.GetHistoryWithFilter(sessionID, HistoryFilter{})
}

// GetHistoryWithFilter returns the session's events matching filter, in
// emission order. Never returns nil.
func (b *BufferedEmitter) GetHistoryWithFilter(sessionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Event, 0, len(b.events[sessionID]))
	for _, event := range b.events[sessionID] {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

func (f HistoryFilter) matches(event Event) bool {
	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.MinStep != nil && event.Step < *f.MinStep {
		return false
	}
	if f.MaxStep != nil && event.Step > *f.MaxStep {
		return false
	}
	return true
}

// Clear removes a session's history, or all history when sessionID is empty.
func (b *BufferedEmitter) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sessionID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, sessionID)
}
