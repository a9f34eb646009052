package llm

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool message to the assistant call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// UserMessage builds a user message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// AssistantMessage builds a plain-text assistant message.
func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ToolMessage builds a tool result message answering callID.
func ToolMessage(content, callID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ToolCall represents a model tool call.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec is a provider-neutral tool definition.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// ToolChoice controls how the model may use tools.
type ToolChoice struct {
	// Mode is "auto", "none", or "required". Empty means provider default.
	Mode string
	// Name forces a specific tool. Backends that cannot force by name
	// send Mode "required" with the single tool instead.
	Name string
}

// Usage reports token accounting for one exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates more into u.
func (u *Usage) Add(more Usage) {
	u.PromptTokens += more.PromptTokens
	u.CompletionTokens += more.CompletionTokens
	u.TotalTokens += more.TotalTokens
}

// Request is a simplified chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolSpec
	ToolChoice  ToolChoice
	MaxTokens   int
	Temperature *float64
	// JSONOnly asks the backend to constrain output to a JSON object
	// where the provider supports it.
	JSONOnly bool
}

// Response represents a model response.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason string
}

// Client is an LLM client interface.
type Client interface {
	// Provider returns the backend identifier, e.g. "openai".
	Provider() string
	Complete(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error)
}

// SplitSystem separates leading system messages from the rest. Backends
// that hoist the system prompt to a top-level field (Anthropic) use this;
// multiple system messages are joined with blank lines.
func SplitSystem(messages []Message) (system string, rest []Message) {
	i := 0
	for ; i < len(messages); i++ {
		if messages[i].Role != RoleSystem {
			break
		}
		if system != "" {
			system += "\n\n"
		}
		system += messages[i].Content
	}
	return system, messages[i:]
}
