// Package mock provides a scripted chat adapter for tests and wiring
// checks that should not depend on a running model server.
package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/tanya/pkg/llm"
)

type LLMConfig struct {
	// Turns are played back one per Generate call, in order. When the
	// script is empty or exhausted the adapter answers ResponseText.
	Turns        []llm.Response
	ResponseText string
	Err          error
}

type LLMAdapter struct {
	cfg LLMConfig

	mu   sync.Mutex
	next int
	seen []llm.Context
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	if cfg.ResponseText == "" {
		cfg.ResponseText = "mock response"
	}
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(_ context.Context, input llm.Context) (llm.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, input)
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	if a.next < len(a.cfg.Turns) {
		resp := a.cfg.Turns[a.next]
		a.next++
		return resp, nil
	}
	return llm.Response{Text: a.cfg.ResponseText}, nil
}

func (a *LLMAdapter) MapTools(tools []llm.Tool) (any, error) {
	return tools, nil
}

// Requests returns every context passed to Generate, in call order.
func (a *LLMAdapter) Requests() []llm.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Context, len(a.seen))
	copy(out, a.seen)
	return out
}

var _ llm.ChatAdapter = (*LLMAdapter)(nil)
