// Package domain defines the core domain models for the conversation engine.
package domain

// Protocol identifies the provider protocol an execution runs against.
type Protocol string

const (
	// ProtocolStateless resends the full message history on every call.
	ProtocolStateless Protocol = "stateless"
	// ProtocolContinuation sends only a delta plus a continuation token;
	// the provider retains history server-side.
	ProtocolContinuation Protocol = "continuation"
	// ProtocolThreadRun creates a thread, starts a run and polls it to a
	// terminal state before fetching the transcript.
	ProtocolThreadRun Protocol = "thread_run"
)

// ExecutionStatus represents the terminal status of a test execution.
type ExecutionStatus string

const (
	StatusCompleted       ExecutionStatus = "completed"
	StatusError           ExecutionStatus = "error"
	StatusMaxTurnsReached ExecutionStatus = "max_turns_reached"
)

// Role represents the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
