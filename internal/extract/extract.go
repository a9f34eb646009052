package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"omnichat/internal/llm"

	"go.uber.org/zap"
)

const recordToolName = "record"

// Extractor pulls structured data out of free text by forcing a single
// tool call whose schema is derived from the target struct.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
	model  string
}

// New constructs an Extractor over any chat client.
func New(client llm.Client, logger *zap.Logger, model string) *Extractor {
	return &Extractor{client: client, logger: logger, model: model}
}

// Extract asks the model to fill target from prompt. Target must be a
// non-nil pointer to a struct. Malformed model output gets one repair
// retry carrying the decode error back to the model.
func (e *Extractor) Extract(ctx context.Context, prompt string, target any) error {
	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return fmt.Errorf("extract: target must be a non-nil pointer, got %T", target)
	}
	schema, err := SchemaFor(value.Type().Elem())
	if err != nil {
		return err
	}

	// The system prompt must say "JSON": OpenAI's JSON mode rejects
	// requests whose messages never mention it.
	req := llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			llm.SystemMessage("Extract the requested data from the user message as JSON. Call the record tool exactly once with every field you can fill."),
			llm.UserMessage(prompt),
		},
		Tools: []llm.ToolSpec{{
			Name:        recordToolName,
			Description: "Record the extracted data.",
			Schema:      schema,
		}},
		ToolChoice: llm.ToolChoice{Name: recordToolName},
		JSONOnly:   true,
	}

	response, err := e.client.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	payload := extractPayload(response)
	if decodeErr := decodeStrict(payload, target); decodeErr != nil {
		e.logger.Warn("extraction decode failed, retrying", zap.Error(decodeErr))
		return e.repair(ctx, req, payload, decodeErr, target)
	}
	return nil
}

// repair replays the exchange with the decode error so the model can
// emit a corrected record.
func (e *Extractor) repair(ctx context.Context, req llm.Request, payload string, decodeErr error, target any) error {
	req.Messages = append(req.Messages,
		llm.AssistantMessage(payload),
		llm.UserMessage(fmt.Sprintf("That output failed to parse: %v. Call the record tool again with corrected JSON.", decodeErr)),
	)
	response, err := e.client.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("extract retry: %w", err)
	}
	if err := decodeStrict(extractPayload(response), target); err != nil {
		return fmt.Errorf("extract: model output does not match target: %w", err)
	}
	return nil
}

// extractPayload prefers the forced tool call arguments and falls back
// to message content for backends that cannot force tool use.
func extractPayload(response llm.Response) string {
	for _, call := range response.ToolCalls {
		if call.Name == recordToolName {
			return string(call.Arguments)
		}
	}
	if len(response.ToolCalls) > 0 {
		return string(response.ToolCalls[0].Arguments)
	}
	return stripFences(response.Content)
}

func decodeStrict(payload string, target any) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("empty model output")
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// stripFences removes a markdown code fence wrapper if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
