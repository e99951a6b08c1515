package relay

import (
	relay "github.com/nurtureme/support-relay/internal/model/relay"
)

// transcripts maps session ids to their ordered message history.
// Entries outlive the owning connection and are only reclaimed at
// process exit. Callers hold the service mutex.
type transcripts struct {
	limit    int // 0 means unbounded
	messages map[string][]relay.Message
}

func newTranscripts(limit int) *transcripts {
	return &transcripts{
		limit:    limit,
		messages: make(map[string][]relay.Message),
	}
}

// ensure initializes an empty history for id if none exists yet.
func (t *transcripts) ensure(id string) {
	if _, ok := t.messages[id]; !ok {
		t.messages[id] = make([]relay.Message, 0, 16)
	}
}

// append records msg under its session id, creating the history on
// first use and trimming the oldest entries when a limit is set.
func (t *transcripts) append(msg relay.Message) {
	history := append(t.messages[msg.SessionID], msg)
	if t.limit > 0 && len(history) > t.limit {
		history = history[len(history)-t.limit:]
	}
	t.messages[msg.SessionID] = history
}

// fetch returns a copy of the history for id, empty for unknown ids.
func (t *transcripts) fetch(id string) []relay.Message {
	history := t.messages[id]
	copied := make([]relay.Message, len(history))
	copy(copied, history)
	return copied
}
