package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/resilience"
)

const ToolCurrentWeather = "current_weather"

const defaultWeatherBaseURL = "https://api.open-meteo.com"

// weatherCodeLabels maps WMO interpretation codes reported by the
// forecast service to condition labels.
var weatherCodeLabels = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	56: "light freezing drizzle",
	57: "dense freezing drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "slight snowfall",
	73: "moderate snowfall",
	75: "heavy snowfall",
	77: "snow grains",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

type WeatherSettings struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	Retries        int    `mapstructure:"retries"`
	RetryBackoffMS int    `mapstructure:"retry_backoff_ms"`
}

// Weather fetches current conditions from an Open-Meteo compatible
// endpoint. It never returns an error from Handle: failures come back
// as descriptive result strings, so the model can read what went wrong
// and carry on with the conversation.
type Weather struct {
	baseURL string
	client  *http.Client
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
}

func NewWeather(settings map[string]any) (*Weather, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Optional: []string{"base_url", "timeout_ms", "retries", "retry_backoff_ms"},
	}); err != nil {
		return nil, fmt.Errorf("current_weather settings: %w", err)
	}
	var cfg WeatherSettings
	if err := configutil.DecodeSettings(settings, &cfg); err != nil {
		return nil, fmt.Errorf("current_weather settings: %w", err)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultWeatherBaseURL
	}
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 10_000
	}
	return &Weather{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		retry:   resilience.NewRetryPolicy(cfg.Retries, time.Duration(cfg.RetryBackoffMS)*time.Millisecond),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
	}, nil
}

func (w *Weather) Tool() llm.Tool {
	return llm.Tool{
		Name:        ToolCurrentWeather,
		Description: "Get the current weather for a location given its latitude and longitude.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number"},
				"longitude": map[string]any{"type": "number"},
			},
			"required": []string{"latitude", "longitude"},
		},
	}
}

func (w *Weather) Handle(ctx context.Context, args map[string]any) (string, error) {
	lat, ok := floatArg(args, "latitude")
	if !ok {
		return "weather error: latitude is required and must be a number", nil
	}
	lon, ok := floatArg(args, "longitude")
	if !ok {
		return "weather error: longitude is required and must be a number", nil
	}
	if !w.breaker.Allow() {
		return "weather error: weather service is cooling down after repeated failures, try again shortly", nil
	}
	report, err := w.fetch(ctx, lat, lon)
	if err != nil {
		w.breaker.OnError(err)
		return "weather error: " + err.Error(), nil
	}
	w.breaker.OnSuccess()
	return report, nil
}

func (w *Weather) fetch(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("current_weather", "true")
	endpoint := w.baseURL + "/v1/forecast?" + query.Encode()

	var payload weatherResponse
	err := w.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("weather service returned status %d", resp.StatusCode)
		}
		payload = weatherResponse{}
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return "", err
	}

	cw := payload.CurrentWeather
	label, ok := weatherCodeLabels[cw.WeatherCode]
	if !ok {
		label = fmt.Sprintf("unknown conditions (code %d)", cw.WeatherCode)
	}
	lines := []string{
		fmt.Sprintf("Current weather for latitude %v, longitude %v:", lat, lon),
		"  Conditions: " + label,
		fmt.Sprintf("  Temperature: %.1f°C", cw.Temperature),
		fmt.Sprintf("  Wind speed: %.1f km/h", cw.WindSpeed),
	}
	if cw.Time != "" {
		lines = append(lines, "  Observed at: "+cw.Time)
	}
	return strings.Join(lines, "\n"), nil
}

type weatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
}

func floatArg(args map[string]any, key string) (float64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
