package observers

import (
	"log/slog"
	"sync"

	"github.com/harunnryd/tanya/pkg/metrics"
)

// LatencyObserver accumulates per-run endpoint and tool wall time and logs
// a single latency line when the run finishes.
type LatencyObserver struct {
	mu   sync.Mutex
	runs map[string]*runTiming
	log  *slog.Logger
}

type runTiming struct {
	endpointMS float64
	toolMS     float64
	turns      int
	toolCalls  int
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		runs: make(map[string]*runTiming),
		log:  log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.Event) {
	runID := ""
	if ev.Tags != nil {
		runID = ev.Tags["run_id"]
	}
	if runID == "" {
		return
	}
	o.mu.Lock()
	t := o.runs[runID]
	if t == nil {
		t = &runTiming{}
		o.runs[runID] = t
	}
	switch ev.Name {
	case metrics.EventChatResponse:
		t.endpointMS += ev.Value
		t.turns++
	case metrics.EventToolExec:
		t.toolMS += ev.Value
		t.toolCalls++
	case metrics.EventRunDone:
		o.logRunLocked(runID, t, ev.Value)
		delete(o.runs, runID)
	}
	o.mu.Unlock()
}

func (o *LatencyObserver) logRunLocked(runID string, t *runTiming, totalMS float64) {
	o.log.Info("latency",
		"run_id", runID,
		"turns", t.turns,
		"tool_calls", t.toolCalls,
		"endpoint_ms", int64(t.endpointMS),
		"tool_ms", int64(t.toolMS),
		"total_ms", int64(totalMS),
	)
}

var _ metrics.Observer = (*LatencyObserver)(nil)
