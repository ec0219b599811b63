package metrics

import "time"

// Event is one observation in a run trace: an endpoint exchange, a tool
// execution, a loop transition. Tags identify the run and component, Fields
// carry event-specific payload.
type Event struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Event names shared across packages. Single-site names stay inline at the
// call site.
const (
	EventChatRequest  = "chat_request"
	EventChatResponse = "chat_response"
	EventToolExec     = "tool_exec"
	EventRunDone      = "run_done"
)

type Observer interface {
	RecordEvent(ev Event)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(Event) {}
