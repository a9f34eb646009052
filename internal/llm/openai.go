package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"
)

// OpenAIClient implements Client for OpenAI and OpenAI-compatible APIs
// (OpenRouter, Azure-style gateways, anything honoring the chat
// completions wire format).
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient constructs a client with base URL and extra headers.
func NewOpenAIClient(apiKey, baseURL string, headers map[string]string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	for key, value := range headers {
		if value != "" {
			opts = append(opts, option.WithHeader(key, value))
		}
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: client}
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		return Response{}, err
	}
	return parseChatCompletion(resp)
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, buildParams(req))
	var builder strings.Builder
	var response Response
	toolCalls := map[int64]*ToolCall{}
	toolArgs := map[int64]*strings.Builder{}
	var order []int64
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			delta := choice.Delta.Content
			if delta != "" {
				builder.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				call, ok := toolCalls[tc.Index]
				if !ok {
					call = &ToolCall{}
					toolCalls[tc.Index] = call
					toolArgs[tc.Index] = &strings.Builder{}
					order = append(order, tc.Index)
				}
				if tc.ID != "" {
					call.ID = tc.ID
				}
				if tc.Function.Name != "" {
					call.Name = tc.Function.Name
				}
				toolArgs[tc.Index].WriteString(tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				response.FinishReason = choice.FinishReason
			}
		}
		if chunk.Usage.TotalTokens > 0 {
			response.Usage = Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Response{}, err
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
	response.Content = builder.String()
	return response, nil
}

func buildParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
		params.ToolChoice = convertToolChoice(req.ToolChoice)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: string(call.Arguments),
						},
						Type: constant.Function("function"),
					},
				})
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content.OfString = param.NewOpt(msg.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func convertTools(specs []ToolSpec) []openai.ChatCompletionToolUnionParam {
	var defs []openai.ChatCompletionToolUnionParam
	for _, spec := range specs {
		// Strict mode stays off: it demands every property be listed
		// in required, and tool schemas here carry optional fields.
		defs = append(defs, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        spec.Name,
					Description: param.NewOpt(spec.Description),
					Parameters:  spec.Schema,
				},
			},
		})
	}
	return defs
}

func convertToolChoice(choice ToolChoice) openai.ChatCompletionToolChoiceOptionUnionParam {
	// A named choice is sent as "required"; callers forcing one tool
	// supply only that tool in the request.
	mode := choice.Mode
	if choice.Name != "" {
		mode = "required"
	}
	if mode == "" {
		mode = "auto"
	}
	return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: param.NewOpt(mode)}
}

func parseChatCompletion(resp *openai.ChatCompletion) (Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("empty response")
	}
	choice := resp.Choices[0]
	response := Response{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, toolCall := range choice.Message.ToolCalls {
		if toolCall.Type != "function" {
			continue
		}
		fn := toolCall.AsFunction()
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:        fn.ID,
			Name:      fn.Function.Name,
			Arguments: json.RawMessage(fn.Function.Arguments),
		})
	}
	return response, nil
}
