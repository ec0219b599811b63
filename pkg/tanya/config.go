// Package tanya assembles the pieces of the CLI into a runnable
// application: configuration, provider selection, tool registry,
// observability, and the conversation loop.
package tanya

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/harunnryd/tanya/pkg/errorsx"
)

type Config struct {
	LLM           VendorConfig        `mapstructure:"llm"`
	Tools         ToolsConfig         `mapstructure:"tools"`
	Chat          ChatConfig          `mapstructure:"chat"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type ToolsConfig struct {
	// Enabled selects which registered tools are advertised to the
	// model. Empty means no tools at all; advertising everything has
	// to be asked for by name.
	Enabled        []string       `mapstructure:"enabled"`
	TimeoutMS      int            `mapstructure:"timeout_ms"`
	Retries        int            `mapstructure:"retries"`
	RetryBackoffMS int            `mapstructure:"retry_backoff_ms"`
	Settings       map[string]any `mapstructure:"settings"`
}

type ChatConfig struct {
	BasePrompt  string  `mapstructure:"base_prompt"`
	MaxTurns    int     `mapstructure:"max_turns"`
	Temperature float64 `mapstructure:"temperature"`
}

type ObservabilityConfig struct {
	ArtifactsDir string `mapstructure:"artifacts_dir"`
	// LogSampleRate thins the debug trace log between 0 and 1. It only
	// affects the logger observer; artifacts always get every event.
	LogSampleRate float64 `mapstructure:"log_sample_rate"`
	RetentionDays int     `mapstructure:"retention_days"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// LoadConfig builds a Config from defaults plus an optional config
// file. An empty path skips the file entirely, so the CLI works with
// flags alone.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("tools.enabled", []string{})
	v.SetDefault("tools.timeout_ms", 0)
	v.SetDefault("tools.retries", 0)
	v.SetDefault("tools.retry_backoff_ms", 150)
	v.SetDefault("chat.base_prompt", "")
	v.SetDefault("chat.max_turns", 0)
	v.SetDefault("chat.temperature", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.log_sample_rate", 1.0)
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("privacy.redact_pii", true)

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsx.Wrap(fmt.Errorf("read config: %w", err), errorsx.ReasonConfigLoad)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsx.Wrap(fmt.Errorf("unmarshal config: %w", err), errorsx.ReasonConfigLoad)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, errorsx.Wrap(fmt.Errorf("validate config: %w", err), errorsx.ReasonConfigLoad)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.Chat.MaxTurns < 0 {
		return fmt.Errorf("chat.max_turns must not be negative")
	}
	if c.Tools.Retries < 0 {
		return fmt.Errorf("tools.retries must not be negative")
	}
	return nil
}

// expandEnvStrings substitutes ${VAR} references in every string field
// and inside the free-form settings maps, so secrets stay out of config
// files.
func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.LLM.Settings = expandSettings(cfg.LLM.Settings)
	cfg.Tools.Settings = expandSettings(cfg.Tools.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
