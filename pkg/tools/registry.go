// Package tools holds the built-in tool adapters and the registry that
// advertises them to the model and dispatches their invocations.
package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
)

// Handler executes one tool invocation.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// UnknownToolError reports a lookup for a tool the registry does not hold.
type UnknownToolError struct {
	Name string
}

func (e UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// IsUnknownTool reports whether err carries an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target UnknownToolError
	return errors.As(err, &target)
}

// ToolExecutionError reports that a tool adapter ran and failed. Detail
// carries the diagnostic text from the underlying command or call.
type ToolExecutionError struct {
	Tool   string
	Detail string
	Err    error
}

func (e ToolExecutionError) Error() string {
	if e.Detail != "" {
		return e.Tool + ": " + e.Detail
	}
	if e.Err != nil {
		return e.Tool + ": " + e.Err.Error()
	}
	return e.Tool + ": execution failed"
}

func (e ToolExecutionError) Unwrap() error { return e.Err }

// IsToolExecution reports whether err carries a ToolExecutionError.
func IsToolExecution(err error) bool {
	var target ToolExecutionError
	return errors.As(err, &target)
}

// Registry maps tool names to their descriptors and handlers. The order
// tools are registered in is the order they are advertised in.
type Registry struct {
	tools    []llm.Tool
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// NewDefault builds a registry with the built-in adapters registered in
// their advertised order: calculator, current_weather, current_datetime.
// settings carries per-tool settings maps keyed by tool name.
func NewDefault(settings map[string]any) (*Registry, error) {
	calc, err := NewCalculator(configutil.SubSettings(settings, ToolCalculator))
	if err != nil {
		return nil, err
	}
	weather, err := NewWeather(configutil.SubSettings(settings, ToolCurrentWeather))
	if err != nil {
		return nil, err
	}
	clock, err := NewDateTime(configutil.SubSettings(settings, ToolCurrentDateTime))
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	reg.Register(calc.Tool(), calc.Handle)
	reg.Register(weather.Tool(), weather.Handle)
	reg.Register(clock.Tool(), clock.Handle)
	return reg, nil
}

// Register adds a tool. Registering a name again replaces the previous
// descriptor and handler in place, keeping its position in the
// advertised order.
func (r *Registry) Register(tool llm.Tool, handler Handler) {
	name := normalizeName(tool.Name)
	tool.Name = name
	if _, ok := r.handlers[name]; ok {
		for i := range r.tools {
			if r.tools[i].Name == name {
				r.tools[i] = tool
				break
			}
		}
	} else {
		r.tools = append(r.tools, tool)
	}
	r.handlers[name] = handler
}

// Tools returns every registered descriptor in registration order.
func (r *Registry) Tools() []llm.Tool {
	out := make([]llm.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Descriptors filters the registry down to the selected tool names,
// keeping registration order and dropping duplicates. An empty
// selection yields no descriptors; advertising every tool has to be an
// explicit choice by the caller, never a fallback.
func (r *Registry) Descriptors(selected []string) ([]llm.Tool, error) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		name = normalizeName(name)
		if name == "" {
			continue
		}
		if _, ok := r.handlers[name]; !ok {
			return nil, UnknownToolError{Name: name}
		}
		want[name] = true
	}
	if len(want) == 0 {
		return nil, nil
	}
	out := make([]llm.Tool, 0, len(want))
	for _, tool := range r.tools {
		if want[tool.Name] {
			out = append(out, tool)
		}
	}
	return out, nil
}

// HandleTool runs the handler registered under name.
func (r *Registry) HandleTool(ctx context.Context, name string, args map[string]any) (string, error) {
	h := r.handlers[normalizeName(name)]
	if h == nil {
		return "", errorsx.Wrap(UnknownToolError{Name: name}, errorsx.ReasonToolUnknown)
	}
	return h(ctx, args)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var _ llm.ToolRegistry = (*Registry)(nil)
