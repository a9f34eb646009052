package tools

import (
	"context"
	"encoding/json"
)

// Meta provides execution context to tools.
type Meta struct {
	ToolTimeoutSeconds int
	MaxBytes           int
}

// Result is a structured tool execution result.
type Result struct {
	ToolName   string
	Payload    any
	Preview    string
	ByteCount  int
	Truncated  bool
	DurationMs int64
}

// Tool describes a callable tool.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, input json.RawMessage, meta Meta) (Result, error)
}
