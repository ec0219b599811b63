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
	"github.com/harunnryd/tanya/pkg/redact"
)

// TraceObserver writes a per-run trace as JSONL under an artifacts
// directory, one file per run ID.
type TraceObserver struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

// NewTraceObserver creates a trace observer writing to dir.
func NewTraceObserver(dir string) *TraceObserver {
	return &TraceObserver{dir: dir, files: make(map[string]*os.File)}
}

// RecordEvent implements metrics.Observer.
func (o *TraceObserver) RecordEvent(ev metrics.Event) {
	runID := ""
	if ev.Tags != nil {
		runID = ev.Tags["run_id"]
	}
	if runID == "" || strings.TrimSpace(o.dir) == "" {
		return
	}
	entry := traceEvent{
		Time:   ev.Time.UTC(),
		Event:  ev.Name,
		RunID:  runID,
		Value:  ev.Value,
		Tags:   copyTags(ev.Tags),
		Fields: sanitizeFields(ev.Fields),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f := o.fileFor(runID)
	if f == nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
}

// Close closes any open files.
func (o *TraceObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	for _, f := range o.files {
		if f == nil {
			continue
		}
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	o.files = make(map[string]*os.File)
	return err
}

type traceEvent struct {
	Time   time.Time         `json:"time"`
	Event  string            `json:"event"`
	RunID  string            `json:"run_id"`
	Value  float64           `json:"value,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
	Fields map[string]any    `json:"fields,omitempty"`
}

func (o *TraceObserver) fileFor(runID string) *os.File {
	safe := sanitizeID(runID)
	if safe == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if f := o.files[safe]; f != nil {
		return f
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil
	}
	path := filepath.Join(o.dir, safe+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	o.files[safe] = f
	return f
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

func copyTags(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// sanitizeFields redacts string payloads, so prompt and answer text never
// reach disk unredacted when privacy mode is on.
func sanitizeFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = redact.Text(s)
			continue
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*TraceObserver)(nil)
