package tanya

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/providers/mock"
	"github.com/harunnryd/tanya/pkg/providers/ollama"
	"github.com/harunnryd/tanya/pkg/providers/openai"
)

// LLMFactory builds a chat adapter from the loaded configuration.
type LLMFactory func(cfg Config) (llm.ChatAdapter, error)

// ProviderRegistry maps provider names to adapter factories. Lookup is
// case-insensitive and whitespace-tolerant.
type ProviderRegistry struct {
	llm map[string]LLMFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{llm: make(map[string]LLMFactory)}
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.ChatAdapter, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, errorsx.Wrap(fmt.Errorf("llm provider not registered: %s", provider), errorsx.ReasonProviderBuild)
	}
	adapter, err := fn(cfg)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonProviderBuild)
	}
	return adapter, nil
}

// DefaultProviderRegistry registers the built-in providers: ollama (the
// default), openai-compatible servers, and the scripted mock.
func DefaultProviderRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterLLM("ollama", buildOllama)
	r.RegisterLLM("openai", buildOpenAI)
	r.RegisterLLM("mock", buildMock)
	return r
}

type ollamaSettings struct {
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

type openAISettings struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

type mockLLMSettings struct {
	ResponseText string         `mapstructure:"response_text"`
	ToolCalls    []mockToolCall `mapstructure:"tool_calls"`
}

type mockToolCall struct {
	ID        string         `mapstructure:"id"`
	Name      string         `mapstructure:"name"`
	Arguments map[string]any `mapstructure:"arguments"`
}

func buildOllama(cfg Config) (llm.ChatAdapter, error) {
	var settings ollamaSettings
	if err := configutil.DecodeSettings(cfg.LLM.Settings, &settings); err != nil {
		return nil, fmt.Errorf("ollama settings: %w", err)
	}
	adapter := ollama.NewAdapter(settings.BaseURL, settings.Model)
	adapter.Temperature = cfg.Chat.Temperature
	if settings.TimeoutMS > 0 {
		adapter.Client.Timeout = time.Duration(settings.TimeoutMS) * time.Millisecond
	}
	return adapter, nil
}

func buildOpenAI(cfg Config) (llm.ChatAdapter, error) {
	var settings openAISettings
	if err := configutil.DecodeSettings(cfg.LLM.Settings, &settings); err != nil {
		return nil, fmt.Errorf("openai settings: %w", err)
	}
	if err := configutil.RequireString(settings.Model, "llm.settings.model"); err != nil {
		return nil, err
	}
	// An empty api_key is fine for local OpenAI-compatible servers.
	adapter := openai.NewAdapter(settings.APIKey, settings.Model)
	if strings.TrimSpace(settings.BaseURL) != "" {
		adapter.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	}
	if settings.TimeoutMS > 0 {
		adapter.Client.Timeout = time.Duration(settings.TimeoutMS) * time.Millisecond
	}
	return adapter, nil
}

func buildMock(cfg Config) (llm.ChatAdapter, error) {
	var settings mockLLMSettings
	if err := configutil.DecodeSettings(cfg.LLM.Settings, &settings); err != nil {
		return nil, fmt.Errorf("mock settings: %w", err)
	}
	mockCfg := mock.LLMConfig{ResponseText: settings.ResponseText}
	if len(settings.ToolCalls) > 0 {
		var calls []llm.ToolCall
		for _, call := range settings.ToolCalls {
			calls = append(calls, llm.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
		}
		mockCfg.Turns = []llm.Response{{ToolCalls: calls}}
	}
	return mock.NewLLMAdapter(mockCfg), nil
}
