package agent

import "context"

// EventKind discriminates session stream events.
type EventKind int

const (
	// EventAssistantText is a chunk of the assistant's own prose.
	EventAssistantText EventKind = iota
	// EventToolCall is the assistant invoking a tool.
	EventToolCall
	// EventToolResult is the outcome of a tool invocation.
	EventToolResult
)

// Event is one element of a session's ordered event stream.
type Event struct {
	Kind EventKind

	// Text carries assistant prose for EventAssistantText and result
	// content for EventToolResult.
	Text string

	// ToolName and ToolInput describe the invocation for
	// EventToolCall.
	ToolName  string
	ToolInput string

	// IsError marks a failed tool result.
	IsError bool
}

// Session is one bounded interaction with the agent. The event channel
// closes when the turn completes or fails; Err reports any transport
// or protocol failure afterwards.
type Session interface {
	// Events yields the ordered event stream.
	Events() <-chan Event

	// Err blocks until the stream has ended and returns the failure
	// that terminated it, or nil for a clean end.
	Err() error

	// Close releases the session. Safe on every exit path; idempotent.
	Close() error
}

// Service opens agent sessions. Exactly one session per project
// directory is active at a time by construction of the harness loop.
type Service interface {
	Open(ctx context.Context, prompt string) (Session, error)
}

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a provider-requested tool invocation.
type ToolCall struct {
	ID         string
	Name       string
	Parameters map[string]interface{}
}

// Usage tracks token consumption for one provider call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
