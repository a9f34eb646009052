package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "weather", "arguments": {"location": "Tunis"}}}]
			},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 40,
			"eval_count": 8
		}`))
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	resp, err := client.Complete(context.Background(), Request{
		Model:    "llama3.2",
		Messages: []Message{SystemMessage("helper"), UserMessage("weather in Tunis?")},
		Tools:    []ToolSpec{{Name: "weather", Schema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Stream {
		t.Fatalf("expected stream=false")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected wire messages: %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "weather" {
		t.Fatalf("unexpected wire tools: %+v", captured.Tools)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "weather" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].ID == "" {
		t.Fatalf("expected synthesized tool call ID")
	}
	if resp.Usage.TotalTokens != 48 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestOllamaStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Errorf("expected stream=true")
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"It is "},"done":false}
{"message":{"role":"assistant","content":"sunny."},"done":false}
{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":4}
`))
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	var deltas []string
	resp, err := client.Stream(context.Background(), Request{Model: "llama3.2", Messages: []Message{UserMessage("hi")}}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "It is sunny." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if resp.FinishReason != "stop" || resp.Usage.TotalTokens != 16 {
		t.Fatalf("unexpected tail chunk mapping: %+v", resp)
	}
}

func TestOllamaJSONOnlySetsFormat(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{}"},"done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	if _, err := client.Complete(context.Background(), Request{Model: "llama3.2", Messages: []Message{UserMessage("hi")}, JSONOnly: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Format != "json" {
		t.Fatalf("expected format json, got %q", captured.Format)
	}
}
