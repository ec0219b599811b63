// Package chat drives the tool-calling conversation loop: send the
// transcript to the model, execute the tool it asks for, feed the result
// back, and stop once the model answers without requesting a tool.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/logging"
	"github.com/harunnryd/tanya/pkg/metrics"
	"github.com/harunnryd/tanya/pkg/redact"
)

// FirstToolCallOnly pins the dispatch policy: when the model requests
// several tool calls in one turn, only the first one is executed and the
// rest are dropped. This keeps the transcript shape at exactly one tool
// message per assistant turn.
const FirstToolCallOnly = true

// ErrMaxTurns reports that the loop hit its configured turn ceiling
// while the model was still requesting tools.
var ErrMaxTurns = errors.New("conversation exceeded the configured turn limit")

// Options configure a conversation loop.
type Options struct {
	// Model is recorded on trace events. The adapter itself decides
	// which model id goes on the wire.
	Model string

	// Tools are the descriptors advertised to the model on every
	// request. The selection is fixed for the whole conversation; an
	// empty slice advertises nothing.
	Tools []llm.Tool

	// BasePrompt seeds the transcript with a system message when set.
	BasePrompt string

	// MaxTurns caps the number of endpoint calls in one run. Zero
	// means no ceiling.
	MaxTurns int

	// Listeners observe loop state transitions.
	Listeners []StateListener
}

// Result is the outcome of one completed run.
type Result struct {
	RunID      string
	Answer     string
	Transcript []llm.Message
	Turns      int
	Usage      llm.Usage
}

// Loop coordinates one chat adapter and one tool registry. A Loop may
// be reused for several runs; each run gets its own transcript, state
// machine, and run id.
type Loop struct {
	adapter  llm.ChatAdapter
	registry llm.ToolRegistry
	observer metrics.Observer
	opts     Options
	log      *slog.Logger
}

func NewLoop(adapter llm.ChatAdapter, registry llm.ToolRegistry, observer metrics.Observer, opts Options) *Loop {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Loop{
		adapter:  adapter,
		registry: registry,
		observer: observer,
		opts:     opts,
		log:      logging.NewComponentLogger(slog.Default(), "chat_loop"),
	}
}

// Run drives the conversation for one prompt to completion. Endpoint
// failures abort the run and are never retried; tool failures are folded
// into the transcript so the model can react to them.
func (l *Loop) Run(ctx context.Context, prompt string) (Result, error) {
	runID := uuid.NewString()
	log := l.log.With("run_id", runID)
	transcript := NewTranscript(l.opts.BasePrompt, prompt)

	fsm := newStateMachine()
	for _, listener := range l.opts.Listeners {
		fsm.AddListener(listener)
	}
	emit := func(name string, value float64, tags map[string]string, fields map[string]any) {
		if tags == nil {
			tags = map[string]string{}
		}
		tags["run_id"] = runID
		l.observer.RecordEvent(metrics.Event{
			Name:   name,
			Time:   time.Now(),
			Value:  value,
			Tags:   tags,
			Fields: fields,
		})
	}
	fsm.AddListener(ListenerFunc(func(ev StateChange) {
		log.Debug("state_change", "from", ev.FromState.String(), "to", ev.ToState.String(), "reason", ev.Reason)
		emit("state_change", 0, map[string]string{
			"from": ev.FromState.String(),
			"to":   ev.ToState.String(),
		}, nil)
	}))

	start := time.Now()
	status := "error"
	turns := 0
	defer func() {
		emit(metrics.EventRunDone, float64(time.Since(start).Milliseconds()),
			map[string]string{"status": status},
			map[string]any{"turns": turns})
		log.Info("run_done", "status", status, "turns", turns, "elapsed_ms", time.Since(start).Milliseconds())
	}()

	emit("run_start", 0, map[string]string{
		"provider": l.adapter.Name(),
		"model":    l.opts.Model,
	}, map[string]any{"tools": len(l.opts.Tools)})
	log.Info("run_start",
		"prompt", redact.Text(prompt),
		"provider", l.adapter.Name(),
		"model", l.opts.Model,
		"tools", len(l.opts.Tools))

	var usage llm.Usage
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if l.opts.MaxTurns > 0 && turns >= l.opts.MaxTurns {
			log.Error("turn_limit_reached", "max_turns", l.opts.MaxTurns)
			return Result{}, ErrMaxTurns
		}
		turns++

		emit(metrics.EventChatRequest, 0, map[string]string{
			"provider": l.adapter.Name(),
			"model":    l.opts.Model,
		}, map[string]any{"turn": turns, "messages": transcript.Len()})
		reqStart := time.Now()
		reply, err := l.adapter.Generate(ctx, llm.Context{
			Messages: transcript.Messages(),
			Tools:    l.opts.Tools,
		})
		if err != nil {
			log.Error("endpoint_failed", "turn", turns, "error", err)
			return Result{}, errorsx.Wrap(err, errorsx.ReasonEndpointRequest)
		}
		emit(metrics.EventChatResponse, float64(time.Since(reqStart).Milliseconds()), map[string]string{
			"provider": l.adapter.Name(),
			"model":    l.opts.Model,
		}, map[string]any{
			"turn":          turns,
			"prompt_tokens": reply.Usage.PromptTokens,
			"eval_tokens":   reply.Usage.EvalTokens,
		})
		usage.PromptTokens += reply.Usage.PromptTokens
		usage.EvalTokens += reply.Usage.EvalTokens
		usage.TotalTokens += reply.Usage.TotalTokens
		transcript.Append(AssistantMessage(reply))

		calls := reply.ToolCalls
		if len(calls) == 0 {
			if err := fsm.Transition(StateDone, "assistant answered without tools"); err != nil {
				return Result{}, err
			}
			status = "ok"
			return Result{
				RunID:      runID,
				Answer:     reply.Text,
				Transcript: transcript.Messages(),
				Turns:      turns,
				Usage:      usage,
			}, nil
		}

		if FirstToolCallOnly && len(calls) > 1 {
			log.Debug("extra_tool_calls_dropped", "requested", len(calls))
			calls = calls[:1]
		}
		call := calls[0]
		if err := fsm.Transition(StateHandlingToolCall, "model requested "+call.Name); err != nil {
			return Result{}, err
		}
		transcript.Append(ToolMessage(call, l.invokeTool(ctx, log, call)))
		if err := fsm.Transition(StateAwaitingResponse, "tool result appended"); err != nil {
			return Result{}, err
		}
	}
}

// invokeTool executes one tool call and always comes back with transcript
// content. Failures turn into error-prefixed text for the model to read.
func (l *Loop) invokeTool(ctx context.Context, log *slog.Logger, call llm.ToolCall) string {
	if l.registry == nil {
		log.Error("tool_not_available", "tool_name", call.Name)
		return "tool error: no tools are available in this session"
	}
	result, err := l.registry.HandleTool(ctx, call.Name, call.Arguments)
	if err != nil {
		if errorsx.HasReason(err, errorsx.ReasonToolUnknown) {
			log.Error("unknown_tool_requested", "tool_name", call.Name, "error", err)
		} else {
			log.Warn("tool_failed", "tool_name", call.Name, "error", err)
		}
		return "tool error: " + err.Error()
	}
	log.Debug("tool_succeeded", "tool_name", call.Name)
	return result
}
