package tools

import (
	"context"
	"errors"
	"time"

	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/metrics"
)

// ErrToolTimeout reports that a tool ran past the executor's deadline.
var ErrToolTimeout = errors.New("tool timeout")

// ExecutorOptions tune how tool handlers are driven. The zero value
// runs every handler inline with no deadline and no retry, which is the
// same as calling the registry directly.
type ExecutorOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

// Executor wraps a registry with per-call deadlines, optional retries,
// and one trace event per invocation. It implements llm.ToolRegistry so
// the conversation loop can use it in place of the bare registry.
type Executor struct {
	registry llm.ToolRegistry
	opts     ExecutorOptions
	observer metrics.Observer
}

func NewExecutor(registry llm.ToolRegistry, observer metrics.Observer, opts ExecutorOptions) *Executor {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 150 * time.Millisecond
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Executor{registry: registry, opts: opts, observer: observer}
}

func (e *Executor) Tools() []llm.Tool {
	return e.registry.Tools()
}

func (e *Executor) HandleTool(ctx context.Context, name string, args map[string]any) (string, error) {
	start := time.Now()
	result, err := e.callWithRetry(ctx, name, args)
	status := "ok"
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonToolExec)
		status = "error"
		if errors.Is(err, ErrToolTimeout) {
			status = "timeout"
		}
	}
	e.observer.RecordEvent(metrics.Event{
		Name:  metrics.EventToolExec,
		Time:  time.Now(),
		Value: float64(time.Since(start).Milliseconds()),
		Tags:  map[string]string{"tool_name": name, "status": status},
	})
	return result, err
}

func (e *Executor) callWithRetry(ctx context.Context, name string, args map[string]any) (string, error) {
	attempts := e.opts.Retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := e.callWithTimeout(ctx, name, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
		// An unknown tool stays unknown no matter how often it is retried.
		if errorsx.HasReason(err, errorsx.ReasonToolUnknown) {
			break
		}
		if i < attempts-1 {
			select {
			case <-time.After(e.opts.RetryBackoff * time.Duration(i+1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

func (e *Executor) callWithTimeout(ctx context.Context, name string, args map[string]any) (string, error) {
	if e.opts.Timeout <= 0 {
		return e.registry.HandleTool(ctx, name, args)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := e.registry.HandleTool(callCtx, name, args)
		ch <- result{text: text, err: err}
	}()
	select {
	case out := <-ch:
		return out.text, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errorsx.Wrap(ErrToolTimeout, errorsx.ReasonToolTimeout)
	}
}

var _ llm.ToolRegistry = (*Executor)(nil)
