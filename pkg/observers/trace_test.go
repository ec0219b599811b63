package observers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/tanya/pkg/metrics"
)

func TestTraceObserverWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	obs := NewTraceObserver(dir)

	ev := metrics.Event{
		Name: metrics.EventChatResponse,
		Time: time.Now(),
		Tags: map[string]string{
			"run_id": "run-1",
			"model":  "qwen2.5:7b",
		},
		Fields: map[string]any{"turn": 1},
	}
	obs.RecordEvent(ev)
	_ = obs.Close()

	path := filepath.Join(dir, "run-1.jsonl")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(b), "chat_response") {
		t.Fatalf("expected chat_response event in file")
	}
}

func TestUsageObserverWritesSummary(t *testing.T) {
	dir := t.TempDir()
	obs := NewUsageObserver(dir)

	tags := map[string]string{"run_id": "run-2", "model": "qwen2.5:7b"}
	obs.RecordEvent(metrics.Event{
		Name:   metrics.EventChatResponse,
		Time:   time.Now(),
		Tags:   tags,
		Fields: map[string]any{"prompt_tokens": 12, "eval_tokens": 34},
	})
	obs.RecordEvent(metrics.Event{
		Name: metrics.EventToolExec,
		Time: time.Now(),
		Tags: tags,
	})
	obs.RecordEvent(metrics.Event{
		Name:   metrics.EventChatResponse,
		Time:   time.Now(),
		Tags:   tags,
		Fields: map[string]any{"prompt_tokens": 40, "eval_tokens": 6},
	})
	if err := obs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "run-2.usage.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var sum UsageSummary
	if err := json.Unmarshal(b, &sum); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if sum.Turns != 2 {
		t.Fatalf("expected 2 turns, got %d", sum.Turns)
	}
	if sum.ToolCalls != 1 {
		t.Fatalf("expected 1 tool call, got %d", sum.ToolCalls)
	}
	if sum.PromptTokens != 52 || sum.EvalTokens != 40 {
		t.Fatalf("unexpected token totals: %+v", sum)
	}
	if sum.Model != "qwen2.5:7b" {
		t.Fatalf("unexpected model %q", sum.Model)
	}
}

func TestPurgeArtifactsSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	stale := filepath.Join(dir, "run-old.jsonl")
	keeper := filepath.Join(dir, "notes.txt")
	for _, path := range []string{stale, keeper} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed, err := PurgeArtifacts(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale artifact removed")
	}
	if _, err := os.Stat(keeper); err != nil {
		t.Fatalf("expected foreign file kept: %v", err)
	}
}
