package agent

import "time"

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventRoundStart  EventKind = "round_start"
	EventToolCall    EventKind = "tool_call"
	EventToolResult  EventKind = "tool_result"
	EventCompaction  EventKind = "compaction"
	EventRepetition  EventKind = "repetition"
	EventUsage       EventKind = "usage"
	EventWarning     EventKind = "warning"
	EventDebugPrompt EventKind = "debug_prompt"
)

// Event is a typed notification emitted by the agent loop at well-defined
// points. Production wires a colored stdout renderer; tests wire a capture
// slice.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventSink receives events synchronously. Sinks must not block; the loop
// calls them inline between suspension points.
type EventSink func(Event)

func (a *Agent) emit(kind EventKind, data map[string]any) {
	if a.sink == nil {
		return
	}
	a.sink(Event{Kind: kind, Timestamp: time.Now(), Data: data})
}
