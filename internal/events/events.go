package events

import "time"

// Type represents an emitted event type.
type Type string

const (
	SessionStarted   Type = "SessionStarted"
	TurnStarted      Type = "TurnStarted"
	ToolCallStarted  Type = "ToolCallStarted"
	ToolCallFinished Type = "ToolCallFinished"
	ToolCallFailed   Type = "ToolCallFailed"
	ModelDelta       Type = "ModelStreamingDelta"
	TurnFinished     Type = "TurnFinished"
	SessionError     Type = "SessionError"
)

// Event is the common envelope for renderer events.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// SessionStartedPayload is emitted when a session opens.
type SessionStartedPayload struct {
	Version   string    `json:"version"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// TurnStartedPayload marks the start of one user turn.
type TurnStartedPayload struct {
	Question  string    `json:"question"`
	StartedAt time.Time `json:"started_at"`
}

// ToolCallStartedPayload marks tool call start.
type ToolCallStartedPayload struct {
	ToolName  string    `json:"tool_name"`
	Input     any       `json:"input"`
	StartedAt time.Time `json:"started_at"`
}

// ToolCallFinishedPayload marks tool call end.
type ToolCallFinishedPayload struct {
	ToolName   string `json:"tool_name"`
	Status     string `json:"status"`
	Output     any    `json:"output"`
	Preview    string `json:"preview"`
	ByteCount  int    `json:"byte_count"`
	Truncated  bool   `json:"truncated"`
	DurationMs int64  `json:"duration_ms"`
}

// ModelDeltaPayload is streamed as tokens arrive.
type ModelDeltaPayload struct {
	Delta string `json:"delta"`
}

// TurnFinishedPayload closes a turn with the final answer.
type TurnFinishedPayload struct {
	Answer      string    `json:"answer"`
	Status      string    `json:"status"`
	StepsUsed   int       `json:"steps_used"`
	TotalTokens int       `json:"total_tokens"`
	FinishedAt  time.Time `json:"finished_at"`
}

// SessionErrorPayload records a session error.
type SessionErrorPayload struct {
	Message string `json:"message"`
}
