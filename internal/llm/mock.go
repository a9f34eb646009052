package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockClient is a deterministic client for tests and demos.
type MockClient struct {
	mu    sync.Mutex
	calls int
}

// NewMockClient returns a simple mock.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Provider() string { return "mock" }

func (m *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	// A forced tool call answers with an empty object for that tool.
	if req.ToolChoice.Name != "" {
		return Response{ToolCalls: []ToolCall{{ID: "call_forced", Name: req.ToolChoice.Name, Arguments: json.RawMessage(`{}`)}}, FinishReason: "tool_calls"}, nil
	}

	if m.calls == 1 && hasTool(req.Tools, "weather") {
		args, _ := json.Marshal(map[string]any{"location": "Tunis"})
		return Response{ToolCalls: []ToolCall{{ID: "call_1", Name: "weather", Arguments: args}}, FinishReason: "tool_calls"}, nil
	}
	return Response{
		Content:      "Mock answer based on available context. [tool:weather]",
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 12, TotalTokens: 22},
	}, nil
}

func (m *MockClient) Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := Response{
		Content:      "Mock answer based on available context. [tool:weather]",
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 12, TotalTokens: 22},
	}
	if onDelta != nil {
		onDelta(resp.Content)
	}
	return resp, nil
}

func hasTool(specs []ToolSpec, name string) bool {
	for _, spec := range specs {
		if spec.Name == name {
			return true
		}
	}
	return false
}
