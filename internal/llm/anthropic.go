package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicTokens  = 4096
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	client  *retryablehttp.Client
}

// NewAnthropicClient constructs a Messages API client.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &AnthropicClient{apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (c *AnthropicClient) Provider() string { return "anthropic" }

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	body, err := c.buildRequest(req, false)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if err := checkAnthropicStatus(resp); err != nil {
		return Response{}, err
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	out := Response{
		FinishReason: parsed.StopReason,
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}
	var text strings.Builder
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		}
	}
	out.Content = text.String()
	return out, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	body, err := c.buildRequest(req, true)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if err := checkAnthropicStatus(resp); err != nil {
		return Response{}, err
	}
	return readAnthropicStream(resp.Body, onDelta)
}

func (c *AnthropicClient) buildRequest(req Request, stream bool) ([]byte, error) {
	system, rest := SplitSystem(req.Messages)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}
	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    convertAnthropicMessages(rest),
		Temperature: req.Temperature,
		Stream:      stream,
	}
	for _, spec := range req.Tools {
		payload.Tools = append(payload.Tools, anthropicTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.Schema,
		})
	}
	if len(req.Tools) > 0 {
		payload.ToolChoice = convertAnthropicToolChoice(req.ToolChoice)
	}
	return json.Marshal(payload)
}

// convertAnthropicMessages maps neutral messages onto the Messages API
// shape: tool results become user-role tool_result blocks, and
// consecutive tool messages merge into one user turn to preserve the
// API's role alternation.
func convertAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleSystem:
			// Non-leading system messages have no slot in the Messages
			// API; they go through as user turns.
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}}})
		case RoleAssistant:
			var blocks []anthropicContentBlock
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicContentBlock{Type: "tool_use", ID: call.ID, Name: call.Name, Input: input})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case RoleTool:
			block := anthropicContentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if len(out) > 0 && out[len(out)-1].Role == "user" && len(out[len(out)-1].Content) > 0 && out[len(out)-1].Content[0].Type == "tool_result" {
				out[len(out)-1].Content = append(out[len(out)-1].Content, block)
				continue
			}
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicContentBlock{block}})
		}
	}
	return out
}

func convertAnthropicToolChoice(choice ToolChoice) *anthropicToolChoice {
	if choice.Name != "" {
		return &anthropicToolChoice{Type: "tool", Name: choice.Name}
	}
	switch choice.Mode {
	case "required":
		return &anthropicToolChoice{Type: "any"}
	case "none":
		return &anthropicToolChoice{Type: "none"}
	case "":
		return nil
	default:
		return &anthropicToolChoice{Type: "auto"}
	}
}

func (c *AnthropicClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("x-api-key", c.apiKey)
	request.Header.Set("anthropic-version", anthropicVersion)
	request.Header.Set("Content-Type", "application/json")
	return c.client.Do(request)
}

func checkAnthropicStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(resp.Body)
	var parsed anthropicError
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("anthropic: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	return fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(raw))
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message"`

	ContentBlock anthropicContentBlock `json:"content_block"`

	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Usage anthropicUsage `json:"usage"`
}

// readAnthropicStream consumes the SSE stream, forwarding text deltas and
// accumulating tool_use input from input_json_delta events.
func readAnthropicStream(body io.Reader, onDelta func(string)) (Response, error) {
	var response Response
	var text strings.Builder
	toolArgs := map[int]*strings.Builder{}
	toolCalls := map[int]*ToolCall{}
	var order []int

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		switch event.Type {
		case "message_start":
			response.Usage.PromptTokens = event.Message.Usage.InputTokens
		case "content_block_start":
			if event.ContentBlock.Type == "tool_use" {
				toolCalls[event.Index] = &ToolCall{ID: event.ContentBlock.ID, Name: event.ContentBlock.Name}
				toolArgs[event.Index] = &strings.Builder{}
				order = append(order, event.Index)
			}
		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				text.WriteString(event.Delta.Text)
				if onDelta != nil {
					onDelta(event.Delta.Text)
				}
			case "input_json_delta":
				if b, ok := toolArgs[event.Index]; ok {
					b.WriteString(event.Delta.PartialJSON)
				}
			}
		case "message_delta":
			if event.Delta.StopReason != "" {
				response.FinishReason = event.Delta.StopReason
			}
			if event.Usage.OutputTokens > 0 {
				response.Usage.CompletionTokens = event.Usage.OutputTokens
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("read stream: %w", err)
	}

	for _, idx := range order {
		call := toolCalls[idx]
		args := toolArgs[idx].String()
		if args == "" {
			args = "{}"
		}
		call.Arguments = json.RawMessage(args)
		response.ToolCalls = append(response.ToolCalls, *call)
	}
	response.Content = text.String()
	response.Usage.TotalTokens = response.Usage.PromptTokens + response.Usage.CompletionTokens
	return response, nil
}
