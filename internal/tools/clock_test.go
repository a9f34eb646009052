package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestClockExecute(t *testing.T) {
	tool := NewClockTool()
	tool.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	input, _ := json.Marshal(map[string]any{"timezone": "UTC"})
	res, err := tool.Execute(context.Background(), input, Meta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, ok := res.Payload.(clockOutput)
	if !ok {
		t.Fatalf("unexpected payload type %T", res.Payload)
	}
	if out.Weekday != "Saturday" {
		t.Fatalf("unexpected weekday: %q", out.Weekday)
	}
	if !strings.HasPrefix(out.Time, "2026-08-29T12:00:00") {
		t.Fatalf("unexpected time: %q", out.Time)
	}
}

func TestClockBadTimezone(t *testing.T) {
	tool := NewClockTool()
	input, _ := json.Marshal(map[string]any{"timezone": "Mars/Olympus"})
	if _, err := tool.Execute(context.Background(), input, Meta{}); err == nil {
		t.Fatalf("expected error for bad timezone")
	}
}

func TestRegistrySpecs(t *testing.T) {
	reg := NewRegistry(NewWeatherTool(), NewClockTool())
	names := reg.Names()
	if len(names) != 2 || names[0] != "time" || names[1] != "weather" {
		t.Fatalf("unexpected names: %v", names)
	}
	specs := reg.Specs()
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[1].Name != "weather" || specs[1].Schema["type"] != "object" {
		t.Fatalf("unexpected spec: %+v", specs[1])
	}
	if _, ok := reg.Get("weather"); !ok {
		t.Fatalf("expected weather tool")
	}
}
