package tanya

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/metrics"
	"github.com/harunnryd/tanya/pkg/providers/mock"
	"github.com/harunnryd/tanya/pkg/providers/ollama"
	"github.com/harunnryd/tanya/pkg/tools"
)

func TestNewAppFailsFastOnUnknownToolName(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.LLM.Provider = "mock"
	cfg.Tools.Enabled = []string{"calculattor"}

	_, err = NewApp(cfg, AppOptions{})
	if err == nil {
		t.Fatal("expected an error for a misspelled tool name")
	}
	if !errorsx.HasReason(err, errorsx.ReasonToolSelect) {
		t.Fatalf("expected tool_select reason, got %v", errorsx.Reason(err))
	}
}

func TestNewAppFailsOnUnregisteredProvider(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.LLM.Provider = "nonesuch"

	_, err = NewApp(cfg, AppOptions{})
	if err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
	if !errorsx.HasReason(err, errorsx.ReasonProviderBuild) {
		t.Fatalf("expected provider_build reason, got %v", errorsx.Reason(err))
	}
}

func TestAppRunsScriptedToolConversation(t *testing.T) {
	artifacts := t.TempDir()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.LLM.Provider = "scripted"
	cfg.Tools.Enabled = []string{"echo"}
	cfg.Observability.ArtifactsDir = artifacts

	providers := NewProviderRegistry()
	providers.RegisterLLM("scripted", func(cfg Config) (llm.ChatAdapter, error) {
		return mock.NewLLMAdapter(mock.LLMConfig{
			Turns: []llm.Response{
				{ToolCalls: []llm.ToolCall{{
					ID:        "call-1",
					Name:      "echo",
					Arguments: map[string]any{"text": "hello"},
				}}},
			},
			ResponseText: "done: hello",
		}), nil
	})

	registry := tools.NewRegistry()
	registry.Register(llm.Tool{
		Name:        "echo",
		Description: "Echo text back.",
		Schema:      map[string]any{"type": "object"},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		text, _ := args["text"].(string)
		return text, nil
	})

	extra := metrics.NewMemoryObserver()
	app, err := NewApp(cfg, AppOptions{
		Providers:      providers,
		Registry:       registry,
		ExtraObservers: []metrics.Observer{extra},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	result, err := app.Run(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Answer != "done: hello" {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if result.Turns != 2 {
		t.Fatalf("expected two endpoint calls, got %d", result.Turns)
	}
	var toolMsg *llm.Message
	for i := range result.Transcript {
		if result.Transcript[i].Role == llm.RoleTool {
			toolMsg = &result.Transcript[i]
		}
	}
	if toolMsg == nil || toolMsg.Content != "hello" {
		t.Fatalf("expected a tool message carrying the echo result, got %+v", toolMsg)
	}

	if err := app.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	entries, err := os.ReadDir(artifacts)
	if err != nil {
		t.Fatalf("read artifacts: %v", err)
	}
	var haveTrace, haveUsage bool
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".usage.json") {
			haveUsage = true
		} else if filepath.Ext(entry.Name()) == ".jsonl" {
			haveTrace = true
		}
	}
	if !haveTrace || !haveUsage {
		t.Fatalf("expected trace and usage artifacts, got %v", entries)
	}
	if len(extra.Named(metrics.EventRunDone)) != 1 {
		t.Fatal("extra observer did not receive the run trace")
	}
}

func TestModelNameResolution(t *testing.T) {
	cfg := Config{LLM: VendorConfig{Provider: "ollama"}}
	if got := modelName(cfg); got != ollama.DefaultModel {
		t.Fatalf("expected provider default model, got %q", got)
	}
	cfg.LLM.Settings = map[string]any{"model": "llama3.2:3b"}
	if got := modelName(cfg); got != "llama3.2:3b" {
		t.Fatalf("expected configured model, got %q", got)
	}
	cfg = Config{LLM: VendorConfig{Provider: "openai"}}
	if got := modelName(cfg); got != "" {
		t.Fatalf("expected empty model for unconfigured openai, got %q", got)
	}
}
