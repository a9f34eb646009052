package llm

import (
	"fmt"
	"strings"
)

// Options carries backend construction parameters resolved from config.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Headers are extra HTTP headers for OpenAI-compatible gateways
	// (e.g. HTTP-Referer, X-Title on OpenRouter).
	Headers map[string]string
}

// New constructs a Client for the named provider. When Provider is empty
// the provider is inferred from the model name.
func New(opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = Resolve(opts.Model)
	}
	switch provider {
	case "openai", "openrouter", "openai-compatible":
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Headers), nil
	case "anthropic":
		return NewAnthropicClient(opts.APIKey, opts.BaseURL), nil
	case "ollama", "local":
		return NewOllamaClient(opts.BaseURL), nil
	case "mock":
		return NewMockClient(), nil
	case "":
		return nil, fmt.Errorf("cannot infer provider for model %q; set one explicitly", opts.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Provider)
	}
}

// Resolve maps a model name to a provider by prefix convention. Returns
// "" when the model is not recognizable.
func Resolve(model string) string {
	name := strings.ToLower(strings.TrimSpace(model))
	// Gateway-style names carry the vendor as a path prefix.
	if idx := strings.Index(name, "/"); idx > 0 {
		name = name[idx+1:]
	}
	switch {
	case strings.HasPrefix(name, "gpt-"), strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"), strings.HasPrefix(name, "chatgpt"):
		return "openai"
	case strings.HasPrefix(name, "claude"):
		return "anthropic"
	case strings.HasPrefix(name, "llama"), strings.HasPrefix(name, "qwen"), strings.HasPrefix(name, "mistral"), strings.HasPrefix(name, "gemma"), strings.HasPrefix(name, "phi"), strings.HasPrefix(name, "deepseek-r1"):
		return "ollama"
	default:
		return ""
	}
}
