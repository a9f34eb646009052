package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTool reports the current time, optionally in a named zone.
type ClockTool struct {
	now func() time.Time
}

// NewClockTool constructs a clock tool.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

func (c *ClockTool) Name() string { return "time" }

func (c *ClockTool) Description() string {
	return "Get the current date and time, optionally in a specific IANA timezone."
}

func (c *ClockTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{"type": "string", "description": "IANA zone like 'Africa/Tunis'; defaults to local"},
		},
		"additionalProperties": false,
	}
}

type clockInput struct {
	Timezone string `json:"timezone"`
}

type clockOutput struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
	Weekday  string `json:"weekday"`
}

func (c *ClockTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (Result, error) {
	var args clockInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return Result{}, err
		}
	}
	loc := time.Local
	if args.Timezone != "" {
		parsed, err := time.LoadLocation(args.Timezone)
		if err != nil {
			return Result{}, fmt.Errorf("unknown timezone %q", args.Timezone)
		}
		loc = parsed
	}
	now := c.now().In(loc)
	output := clockOutput{
		Time:     now.Format(time.RFC3339),
		Timezone: loc.String(),
		Weekday:  now.Weekday().String(),
	}
	payload, _ := json.Marshal(output)
	return Result{
		ToolName:  c.Name(),
		Payload:   output,
		Preview:   fmt.Sprintf("%s (%s)", output.Time, output.Weekday),
		ByteCount: len(payload),
	}, nil
}
