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

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// DefaultOllamaBaseURL is the default address of a local Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaClient implements Client against a local Ollama server's
// /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewOllamaClient returns a client for the Ollama API at baseURL.
func NewOllamaClient(baseURL string) *OllamaClient {
	url := strings.TrimSuffix(baseURL, "/")
	if url == "" {
		url = DefaultOllamaBaseURL
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	return &OllamaClient{baseURL: url, client: client}
}

func (c *OllamaClient) Provider() string { return "ollama" }

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Format   string          `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	return fromOllamaResponse(parsed), nil
}

func (c *OllamaClient) Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	// Ollama streams newline-delimited JSON chunks.
	var response Response
	var text strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return Response{}, fmt.Errorf("ollama: decode chunk: %w", err)
		}
		if chunk.Message.Content != "" {
			text.WriteString(chunk.Message.Content)
			if onDelta != nil {
				onDelta(chunk.Message.Content)
			}
		}
		for _, call := range chunk.Message.ToolCalls {
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:        uuid.NewString(),
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
		if chunk.Done {
			response.FinishReason = chunk.DoneReason
			response.Usage = Usage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
				TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("ollama: read stream: %w", err)
	}
	response.Content = text.String()
	return response, nil
}

func (c *OllamaClient) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	payload := ollamaChatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   stream,
	}
	for _, spec := range req.Tools {
		var tool ollamaTool
		tool.Type = "function"
		tool.Function.Name = spec.Name
		tool.Function.Description = spec.Description
		tool.Function.Parameters = spec.Schema
		payload.Tools = append(payload.Tools, tool)
	}
	if req.JSONOnly {
		payload.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		payload.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	return c.client.Do(request)
}

func toOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		converted := ollamaMessage{Role: string(msg.Role), Content: msg.Content}
		for _, call := range msg.ToolCalls {
			var oc ollamaToolCall
			oc.Function.Name = call.Name
			oc.Function.Arguments = call.Arguments
			converted.ToolCalls = append(converted.ToolCalls, oc)
		}
		out = append(out, converted)
	}
	return out
}

// fromOllamaResponse maps a chat response to the neutral shape. Ollama
// does not assign tool call IDs, so stable ones are synthesized.
func fromOllamaResponse(parsed ollamaChatResponse) Response {
	response := Response{
		Content:      parsed.Message.Content,
		FinishReason: parsed.DoneReason,
		Usage: Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}
	for _, call := range parsed.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return response
}
