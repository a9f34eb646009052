package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAICompleteWireFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, nil)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{SystemMessage("Reply as JSON."), UserMessage("hi")},
		Tools: []ToolSpec{{
			Name:        "record",
			Description: "record data",
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}, "age": map[string]any{"type": "integer"}},
				"required":   []string{"name"},
			},
		}},
		ToolChoice: ToolChoice{Name: "record"},
		JSONOnly:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" || resp.Usage.TotalTokens != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	tools, ok := captured["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("unexpected tools: %v", captured["tools"])
	}
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	if _, present := fn["strict"]; present {
		t.Fatalf("strict must not be sent with partially-required schemas: %v", fn)
	}
	if captured["tool_choice"] != "required" {
		t.Fatalf("forced tool must map to required, got %v", captured["tool_choice"])
	}
	format, ok := captured["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("unexpected response_format: %v", captured["response_format"])
	}
}

func TestOpenAICompleteNoJSONModeByDefault(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, nil)
	if _, err := client.Complete(context.Background(), Request{Model: "gpt-4o-mini", Messages: []Message{UserMessage("hi")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := captured["response_format"]; present {
		t.Fatalf("response_format must be omitted unless JSONOnly is set: %v", captured["response_format"])
	}
	if _, present := captured["tools"]; present {
		t.Fatalf("tools must be omitted when none are supplied")
	}
}

func TestOpenAIStreamToolCalls(t *testing.T) {
	chunks := []string{
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Checking"},"finish_reason":null}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"weather","arguments":"{\"location\":"}}]},"finish_reason":null}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Tunis\"}"}}]},"finish_reason":null}]}`,
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":20,"completion_tokens":10,"total_tokens":30}}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			_, _ = io.WriteString(w, "data: "+chunk+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, nil)
	var deltas []string
	resp, err := client.Stream(context.Background(), Request{Model: "gpt-4o-mini", Messages: []Message{UserMessage("weather?")}}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Checking" || len(deltas) != 1 {
		t.Fatalf("unexpected content: %q (%d deltas)", resp.Content, len(deltas))
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "weather" {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	if string(call.Arguments) != `{"location":"Tunis"}` {
		t.Fatalf("arguments not accumulated across chunks: %s", call.Arguments)
	}
	if resp.FinishReason != "tool_calls" || resp.Usage.TotalTokens != 30 {
		t.Fatalf("unexpected tail mapping: %+v", resp)
	}
}

func TestConvertMessagesRoundTrip(t *testing.T) {
	msgs := convertMessages([]Message{
		SystemMessage("sys"),
		UserMessage("hi"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Name: "weather", Arguments: json.RawMessage(`{}`)}}},
		ToolMessage(`{"temp":30}`, "a"),
		AssistantMessage("done"),
	})
	if len(msgs) != 5 {
		t.Fatalf("expected 5 wire messages, got %d", len(msgs))
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		t.Fatalf("marshal wire messages: %v", err)
	}
	for _, want := range []string{`"system"`, `"user"`, `"assistant"`, `"tool"`, `"tool_call_id":"a"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("wire messages missing %s: %s", want, raw)
		}
	}
}
