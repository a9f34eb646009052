package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"omnichat/internal/config"
	"omnichat/internal/events"
	"omnichat/internal/llm"
	"omnichat/internal/render"
	"omnichat/internal/tools"
	"omnichat/internal/util"
	"omnichat/internal/version"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMaxSteps is returned when a turn hits the tool step limit.
var ErrMaxSteps = errors.New("max steps reached")

// ToolCallRecord records one tool call within a turn.
type ToolCallRecord struct {
	ToolName   string    `json:"tool_name"`
	Input      any       `json:"input"`
	Output     any       `json:"output"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Turn captures one user exchange and its outcome.
type Turn struct {
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	Status     string           `json:"status"`
	StepsUsed  int              `json:"steps_used"`
	ToolCalls  []ToolCallRecord `json:"tool_calls"`
	Usage      llm.Usage        `json:"usage"`
	StartedAt  time.Time        `json:"timestamp_start"`
	FinishedAt time.Time        `json:"timestamp_end"`
}

// Record is the JSON-able state of a session.
type Record struct {
	SessionID  string         `json:"session_id"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	StartedAt  time.Time      `json:"started_at"`
	Turns      []Turn         `json:"turns"`
	TotalUsage llm.Usage      `json:"total_usage"`
	Events     []events.Event `json:"events,omitempty"`
}

// Session is a mutable chat session over one Client. It holds the system
// prompt and transcript and runs the tool dispatch loop per turn.
type Session struct {
	client   llm.Client
	tools    *tools.Registry
	renderer render.Renderer
	logger   *zap.Logger
	cfg      config.Config

	id       string
	messages []llm.Message
	record   Record
}

// New constructs a Session with the given system prompt. An empty prompt
// falls back to the default assistant prompt.
func New(client llm.Client, registry *tools.Registry, renderer render.Renderer, logger *zap.Logger, cfg config.Config) *Session {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt()
	}
	s := &Session{
		client:   client,
		tools:    registry,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
		id:       uuid.NewString(),
	}
	s.messages = []llm.Message{llm.SystemMessage(prompt)}
	s.record = Record{
		SessionID: s.id,
		Provider:  client.Provider(),
		Model:     cfg.Model,
		StartedAt: time.Now(),
	}
	s.emit(events.Event{Type: events.SessionStarted, Timestamp: time.Now(), Payload: events.SessionStartedPayload{
		Version:   version.Version,
		Provider:  client.Provider(),
		Model:     cfg.Model,
		SessionID: s.id,
		StartedAt: s.record.StartedAt,
	}})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// History returns a copy of the transcript.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Record returns the accumulated session record.
func (s *Session) Record() Record { return s.record }

// Reset rebinds the session to a fresh transcript with a new system
// prompt, keeping the client and tools. Turn history is cleared.
func (s *Session) Reset(systemPrompt string) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt()
	}
	s.messages = []llm.Message{llm.SystemMessage(systemPrompt)}
	s.record.Turns = nil
	s.record.TotalUsage = llm.Usage{}
	s.logger.Info("session reset", zap.String("session_id", s.id))
}

// Send appends a user message and runs the tool loop until the model
// answers with text or the step limit is hit.
func (s *Session) Send(ctx context.Context, text string) (Turn, error) {
	started := time.Now()
	turn := Turn{Question: text, Status: "failure", StartedAt: started}
	s.emit(events.Event{Type: events.TurnStarted, Timestamp: started, Payload: events.TurnStartedPayload{Question: text, StartedAt: started}})

	s.messages = append(s.messages, llm.UserMessage(text))

	req := llm.Request{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	if s.tools != nil && !s.cfg.NoTools {
		req.Tools = s.tools.Specs()
		if len(req.Tools) > 0 {
			req.ToolChoice = llm.ToolChoice{Mode: "auto"}
		}
	}

	for turn.StepsUsed < s.cfg.MaxSteps {
		turn.StepsUsed++
		req.Messages = s.messages

		response, err := s.client.Complete(ctx, req)
		if err != nil {
			s.logger.Error("model request failed", zap.Error(err))
			s.emit(events.Event{Type: events.SessionError, Timestamp: time.Now(), Payload: events.SessionErrorPayload{Message: err.Error()}})
			turn.FinishedAt = time.Now()
			s.record.Turns = append(s.record.Turns, turn)
			return turn, err
		}
		turn.Usage.Add(response.Usage)

		if len(response.ToolCalls) == 0 {
			answer := strings.TrimSpace(response.Content)
			if s.shouldStream() {
				streamed, err := s.streamFinal(ctx, req)
				if err != nil {
					s.logger.Error("streaming failed", zap.Error(err))
				} else if strings.TrimSpace(streamed) != "" {
					answer = strings.TrimSpace(streamed)
				}
			}
			return s.finishTurn(turn, answer, "success", nil)
		}

		assistant := llm.Message{Role: llm.RoleAssistant, Content: response.Content, ToolCalls: response.ToolCalls}
		s.messages = append(s.messages, assistant)

		for _, call := range response.ToolCalls {
			s.messages = append(s.messages, s.dispatch(ctx, call, &turn))
		}
	}

	// Step limit reached: ask for a best-effort partial answer.
	s.messages = append(s.messages, llm.SystemMessage("Tool step limit reached. Answer with what you have and note what is missing."))
	req.Messages = s.messages
	req.ToolChoice = llm.ToolChoice{Mode: "none"}
	answer := "Step limit reached; unable to complete."
	if response, err := s.client.Complete(ctx, req); err == nil && strings.TrimSpace(response.Content) != "" {
		answer = strings.TrimSpace(response.Content)
		turn.Usage.Add(response.Usage)
	}
	return s.finishTurn(turn, answer, "partial", ErrMaxSteps)
}

// dispatch executes one tool call and returns the tool message to feed
// back to the model. Unknown tools and execution failures become error
// payloads so the loop can continue.
func (s *Session) dispatch(ctx context.Context, call llm.ToolCall, turn *Turn) llm.Message {
	tool, ok := s.tools.Get(call.Name)
	if !ok {
		err := fmt.Errorf("unknown tool: %s", call.Name)
		s.emit(events.Event{Type: events.ToolCallFailed, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{ToolName: call.Name, Status: "error", Preview: err.Error(), ByteCount: len(err.Error())}})
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return llm.ToolMessage(string(payload), call.ID)
	}

	input := sanitizeInput(call.Arguments)
	start := time.Now()
	s.emit(events.Event{Type: events.ToolCallStarted, Timestamp: start, Payload: events.ToolCallStartedPayload{ToolName: call.Name, Input: input, StartedAt: start}})

	meta := tools.Meta{
		ToolTimeoutSeconds: s.cfg.Limits.ToolTimeoutSeconds,
		MaxBytes:           s.cfg.Limits.ToolMaxBytes,
	}
	res, err := tool.Execute(ctx, call.Arguments, meta)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		payload := map[string]any{"error": err.Error(), "duration_ms": duration}
		turn.ToolCalls = append(turn.ToolCalls, ToolCallRecord{ToolName: call.Name, Input: input, Output: payload, Status: "error", StartedAt: start, DurationMs: duration})
		s.emit(events.Event{Type: events.ToolCallFailed, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{ToolName: call.Name, Status: "error", Preview: err.Error(), DurationMs: duration, ByteCount: len(err.Error())}})
		raw, _ := json.Marshal(payload)
		return llm.ToolMessage(string(raw), call.ID)
	}
	res.DurationMs = duration
	turn.ToolCalls = append(turn.ToolCalls, ToolCallRecord{ToolName: call.Name, Input: input, Output: res.Payload, Status: "success", StartedAt: start, DurationMs: duration})

	s.emit(events.Event{Type: events.ToolCallFinished, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{
		ToolName:   call.Name,
		Status:     "success",
		Output:     res.Payload,
		Preview:    res.Preview,
		ByteCount:  res.ByteCount,
		Truncated:  res.Truncated,
		DurationMs: duration,
	}})

	raw, _ := json.Marshal(res.Payload)
	content, truncated := util.TruncateBytes(string(raw), s.cfg.Limits.ToolMaxBytes)
	if truncated {
		s.logger.Warn("tool payload truncated", zap.String("tool", call.Name), zap.Int("max_bytes", s.cfg.Limits.ToolMaxBytes))
	}
	return llm.ToolMessage(content, call.ID)
}

func (s *Session) finishTurn(turn Turn, answer, status string, err error) (Turn, error) {
	turn.Answer = answer
	turn.Status = status
	turn.FinishedAt = time.Now()
	s.messages = append(s.messages, llm.AssistantMessage(answer))
	s.record.TotalUsage.Add(turn.Usage)
	s.record.Turns = append(s.record.Turns, turn)
	s.emit(events.Event{Type: events.TurnFinished, Timestamp: turn.FinishedAt, Payload: events.TurnFinishedPayload{
		Answer:      answer,
		Status:      status,
		StepsUsed:   turn.StepsUsed,
		TotalTokens: turn.Usage.TotalTokens,
		FinishedAt:  turn.FinishedAt,
	}})
	return turn, err
}

func (s *Session) shouldStream() bool {
	return s.renderer != nil && !s.cfg.NoStream && !s.cfg.JSON
}

func (s *Session) streamFinal(ctx context.Context, req llm.Request) (string, error) {
	var builder strings.Builder
	_, err := s.client.Stream(ctx, req, func(delta string) {
		s.emit(events.Event{Type: events.ModelDelta, Timestamp: time.Now(), Payload: events.ModelDeltaPayload{Delta: delta}})
		builder.WriteString(delta)
	})
	return builder.String(), err
}

func (s *Session) emit(event events.Event) {
	s.record.Events = append(s.record.Events, event)
	if s.renderer != nil {
		s.renderer.Emit(event)
	}
}

func sanitizeInput(args json.RawMessage) any {
	if len(args) == 0 {
		return map[string]any{}
	}
	var data any
	if err := json.Unmarshal(args, &data); err != nil {
		return map[string]any{"raw": util.RedactSecrets(string(args))}
	}
	if raw, err := json.Marshal(data); err == nil {
		return util.RedactSecrets(string(raw))
	}
	return data
}
