package llm

import "testing"

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		SystemMessage("You are a helper."),
		SystemMessage("Stay terse."),
		UserMessage("hi"),
		AssistantMessage("hello"),
	})
	if system != "You are a helper.\n\nStay terse." {
		t.Fatalf("unexpected system prompt: %q", system)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining messages, got %d", len(rest))
	}
	if rest[0].Role != RoleUser {
		t.Fatalf("expected user first, got %s", rest[0].Role)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "openai"},
		{"o3-mini", "openai"},
		{"claude-sonnet-4-20250514", "anthropic"},
		{"anthropic/claude-3-haiku", "anthropic"},
		{"llama3.2", "ollama"},
		{"qwen2.5-coder", "ollama"},
		{"totally-unknown", ""},
	}
	for _, tc := range cases {
		if got := Resolve(tc.model); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "watsonx"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if _, err := New(Options{Model: "mystery-model"}); err == nil {
		t.Fatalf("expected error when provider cannot be inferred")
	}
}

func TestNewByProvider(t *testing.T) {
	client, err := New(Options{Provider: "anthropic", APIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "anthropic" {
		t.Fatalf("unexpected provider: %s", client.Provider())
	}

	client, err = New(Options{Model: "llama3.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "ollama" {
		t.Fatalf("unexpected provider: %s", client.Provider())
	}
}

func TestUsageAdd(t *testing.T) {
	var total Usage
	total.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	total.Add(Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	if total.TotalTokens != 18 || total.PromptTokens != 11 {
		t.Fatalf("unexpected usage: %+v", total)
	}
}
