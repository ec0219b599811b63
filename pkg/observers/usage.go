package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/tanya/pkg/metrics"
)

// UsageSummary is the per-run accounting written next to the trace file.
type UsageSummary struct {
	RunID         string `json:"run_id"`
	Model         string `json:"model,omitempty"`
	Turns         int    `json:"turns"`
	ToolCalls     int    `json:"tool_calls"`
	PromptTokens  int    `json:"prompt_tokens"`
	EvalTokens    int    `json:"eval_tokens"`
	RecordedAtUTC string `json:"recorded_at_utc"`
}

// UsageObserver accumulates token and call counts per run and writes one
// summary file per run on Close.
type UsageObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*UsageSummary
}

func NewUsageObserver(dir string) *UsageObserver {
	return &UsageObserver{dir: dir, stats: make(map[string]*UsageSummary)}
}

func (o *UsageObserver) RecordEvent(ev metrics.Event) {
	if strings.TrimSpace(o.dir) == "" {
		return
	}
	runID := ""
	if ev.Tags != nil {
		runID = ev.Tags["run_id"]
	}
	if runID == "" {
		return
	}

	switch ev.Name {
	case metrics.EventChatResponse:
		o.mu.Lock()
		stat := o.statLocked(runID)
		if model := ev.Tags["model"]; model != "" {
			stat.Model = model
		}
		stat.Turns++
		stat.PromptTokens += intField(ev.Fields, "prompt_tokens")
		stat.EvalTokens += intField(ev.Fields, "eval_tokens")
		o.mu.Unlock()
	case metrics.EventToolExec:
		o.mu.Lock()
		o.statLocked(runID).ToolCalls++
		o.mu.Unlock()
	}
}

func (o *UsageObserver) statLocked(runID string) *UsageSummary {
	stat := o.stats[runID]
	if stat == nil {
		stat = &UsageSummary{RunID: runID}
		o.stats[runID] = stat
	}
	return stat
}

func (o *UsageObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for runID, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, sanitizeID(runID)+".usage.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

var _ metrics.Observer = (*UsageObserver)(nil)
