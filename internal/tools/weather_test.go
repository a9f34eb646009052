package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWeatherExecute(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "Tunis" {
			t.Errorf("unexpected geocoding query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results": [{"name": "Tunis", "country": "Tunisia", "latitude": 36.8, "longitude": 10.18}]}`))
	}))
	defer geo.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("temperature_unit") != "celsius" {
			t.Errorf("unexpected unit: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"current": {"temperature_2m": 31.4, "wind_speed_10m": 14.0, "weather_code": 1}}`))
	}))
	defer forecast.Close()

	tool := NewWeatherTool()
	tool.geocodingURL = geo.URL
	tool.forecastURL = forecast.URL

	input, _ := json.Marshal(map[string]any{"location": "Tunis"})
	res, err := tool.Execute(context.Background(), input, Meta{ToolTimeoutSeconds: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, ok := res.Payload.(weatherOutput)
	if !ok {
		t.Fatalf("unexpected payload type %T", res.Payload)
	}
	if out.Temperature != 31.4 || out.Country != "Tunisia" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Conditions != "partly cloudy" {
		t.Fatalf("unexpected conditions: %q", out.Conditions)
	}
	if !strings.Contains(res.Preview, "Tunis") {
		t.Fatalf("unexpected preview: %q", res.Preview)
	}
}

func TestWeatherNoMatch(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer geo.Close()

	tool := NewWeatherTool()
	tool.geocodingURL = geo.URL

	input, _ := json.Marshal(map[string]any{"location": "Nowhereville"})
	if _, err := tool.Execute(context.Background(), input, Meta{ToolTimeoutSeconds: 2}); err == nil {
		t.Fatalf("expected error for unknown location")
	}
}

func TestWeatherRequiresLocation(t *testing.T) {
	tool := NewWeatherTool()
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`), Meta{}); err == nil {
		t.Fatalf("expected error for missing location")
	}
}
