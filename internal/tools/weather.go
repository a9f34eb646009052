package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// WeatherTool looks up current weather via the Open-Meteo public API.
// It needs no API key: a geocoding call resolves the location, then a
// forecast call fetches current conditions.
type WeatherTool struct {
	geocodingURL string
	forecastURL  string
	client       *retryablehttp.Client
}

// NewWeatherTool constructs a weather lookup tool.
func NewWeatherTool() *WeatherTool {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &WeatherTool{geocodingURL: defaultGeocodingURL, forecastURL: defaultForecastURL, client: client}
}

func (w *WeatherTool) Name() string { return "weather" }

func (w *WeatherTool) Description() string {
	return "Look up current weather for a location: temperature, wind speed, and conditions."
}

func (w *WeatherTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{"type": "string", "description": "City or place name, e.g. 'Tunis'"},
			"unit":     map[string]any{"type": "string", "enum": []string{"celsius", "fahrenheit"}},
		},
		"required":             []string{"location"},
		"additionalProperties": false,
	}
}

type weatherInput struct {
	Location string `json:"location"`
	Unit     string `json:"unit"`
}

type weatherOutput struct {
	Location    string  `json:"location"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	WindSpeed   float64 `json:"wind_speed_kmh"`
	Conditions  string  `json:"conditions"`
	DurationMs  int64   `json:"duration_ms"`
}

func (w *WeatherTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (Result, error) {
	var args weatherInput
	if err := json.Unmarshal(input, &args); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(args.Location) == "" {
		return Result{}, errors.New("location is required")
	}
	unit := args.Unit
	if unit != "fahrenheit" {
		unit = "celsius"
	}

	start := time.Now()
	timeout := time.Duration(meta.ToolTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	place, err := w.geocode(ctx, args.Location)
	if err != nil {
		return Result{}, err
	}
	current, err := w.forecast(ctx, place, unit)
	if err != nil {
		return Result{}, err
	}

	output := weatherOutput{
		Location:    place.Name,
		Country:     place.Country,
		Temperature: current.Temperature,
		Unit:        unit,
		WindSpeed:   current.WindSpeed,
		Conditions:  describeWeatherCode(current.WeatherCode),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	preview := fmt.Sprintf("%s, %s: %.1f°%s, %s, wind %.0f km/h", output.Location, output.Country, output.Temperature, unitSuffix(unit), output.Conditions, output.WindSpeed)
	payload, _ := json.Marshal(output)
	return Result{
		ToolName:   w.Name(),
		Payload:    output,
		Preview:    preview,
		ByteCount:  len(payload),
		DurationMs: output.DurationMs,
	}, nil
}

type geoPlace struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (w *WeatherTool) geocode(ctx context.Context, location string) (geoPlace, error) {
	query := url.Values{"name": {location}, "count": {"1"}}
	body, err := w.get(ctx, w.geocodingURL+"?"+query.Encode())
	if err != nil {
		return geoPlace{}, fmt.Errorf("geocoding failed: %w", err)
	}
	var parsed struct {
		Results []geoPlace `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return geoPlace{}, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(parsed.Results) == 0 {
		return geoPlace{}, fmt.Errorf("no match for location %q", location)
	}
	return parsed.Results[0], nil
}

type currentWeather struct {
	Temperature float64 `json:"temperature_2m"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	WeatherCode int     `json:"weather_code"`
}

func (w *WeatherTool) forecast(ctx context.Context, place geoPlace, unit string) (currentWeather, error) {
	query := url.Values{
		"latitude":         {fmt.Sprintf("%.4f", place.Latitude)},
		"longitude":        {fmt.Sprintf("%.4f", place.Longitude)},
		"current":          {"temperature_2m,wind_speed_10m,weather_code"},
		"temperature_unit": {unit},
	}
	body, err := w.get(ctx, w.forecastURL+"?"+query.Encode())
	if err != nil {
		return currentWeather{}, fmt.Errorf("forecast failed: %w", err)
	}
	var parsed struct {
		Current currentWeather `json:"current"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return currentWeather{}, fmt.Errorf("forecast failed: %w", err)
	}
	return parsed.Current, nil
}

func (w *WeatherTool) get(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return io.ReadAll(resp.Body)
}

func unitSuffix(unit string) string {
	if unit == "fahrenheit" {
		return "F"
	}
	return "C"
}

// describeWeatherCode maps WMO weather codes to short descriptions.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return fmt.Sprintf("weather code %d", code)
	}
}
