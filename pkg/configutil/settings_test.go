package configutil

import "testing"

func TestDecodeSettingsMatchesLooseKeys(t *testing.T) {
	type weatherSettings struct {
		BaseURL   string `mapstructure:"base_url"`
		TimeoutMS int    `mapstructure:"timeout_ms"`
	}
	input := map[string]any{
		"base-url":   "http://localhost:9090",
		"TIMEOUT_MS": "2500",
	}
	var out weatherSettings
	if err := DecodeSettings(input, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.BaseURL != "http://localhost:9090" {
		t.Fatalf("unexpected base url: %q", out.BaseURL)
	}
	if out.TimeoutMS != 2500 {
		t.Fatalf("unexpected timeout: %d", out.TimeoutMS)
	}
}

func TestSubSettings(t *testing.T) {
	input := map[string]any{
		"current_weather": map[any]any{
			"base_url": "http://localhost:9090",
		},
		"calculator": "not a map",
	}
	sub := SubSettings(input, "current-weather")
	if sub == nil {
		t.Fatal("expected nested settings")
	}
	if sub["base_url"] != "http://localhost:9090" {
		t.Fatalf("unexpected nested value: %v", sub["base_url"])
	}
	if SubSettings(input, "calculator") != nil {
		t.Fatal("non-map value should yield nil")
	}
	if SubSettings(input, "missing") != nil {
		t.Fatal("absent key should yield nil")
	}
}

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	schema := Schema{
		Required: []string{"api_key"},
		Optional: []string{"base_url"},
	}
	err := ValidateSettings(map[string]any{
		"base_url": "http://localhost:11434",
		"extra":    true,
	}, schema)
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := "invalid settings (missing: api_key; unknown: extra)"
	if err.Error() != want {
		t.Fatalf("unexpected error: %q", err.Error())
	}
}
