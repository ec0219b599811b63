// Package ollama adapts the chat contract to a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/resilience"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2.5:7b"
)

type Adapter struct {
	BaseURL     string
	Model       string
	Temperature float64
	Client      *http.Client
}

func NewAdapter(baseURL, model string) *Adapter {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Adapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *Adapter) Name() string { return "ollama" }

// MapTools renders descriptors in the function-call shape the server
// expects: {type: "function", function: {name, description, parameters}}.
func (a *Adapter) MapTools(tools []llm.Tool) (any, error) {
	var out []map[string]any
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema,
			},
		})
	}
	return out, nil
}

// Generate performs one non-streaming /api/chat exchange. The tools
// field is left off the payload entirely when no tools are selected.
func (a *Adapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	payload := chatRequest{
		Model:    a.Model,
		Messages: encodeMessages(input.Messages),
		Stream:   false,
		Options:  chatOptions{Temperature: a.Temperature},
	}
	if len(input.Tools) > 0 {
		tools, err := a.MapTools(input.Tools)
		if err != nil {
			return llm.Response{}, err
		}
		payload.Tools = tools
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return llm.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client().Do(req)
	if err != nil {
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonEndpointRequest)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		return llm.Response{}, resilience.RateLimitError{Provider: "ollama", Message: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonEndpointStatus)
	}
	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return llm.Response{}, errorsx.Wrap(err, errorsx.ReasonEndpointDecode)
	}
	return decodeResponse(decoded), nil
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    any           `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type chatResponse struct {
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func encodeMessages(messages []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		encoded := chatMessage{Role: string(msg.Role), Content: msg.Content}
		for _, call := range msg.ToolCalls {
			encoded.ToolCalls = append(encoded.ToolCalls, toolCall{
				Function: toolCallFunction{Name: call.Name, Arguments: call.Arguments},
			})
		}
		out = append(out, encoded)
	}
	return out
}

// decodeResponse lifts the wire payload into the adapter-neutral shape.
// The server does not assign tool call ids, so fresh ones are minted for
// transcript bookkeeping.
func decodeResponse(payload chatResponse) llm.Response {
	resp := llm.Response{
		Text:       payload.Message.Content,
		DoneReason: payload.DoneReason,
		Usage: llm.Usage{
			PromptTokens: payload.PromptEvalCount,
			EvalTokens:   payload.EvalCount,
			TotalTokens:  payload.PromptEvalCount + payload.EvalCount,
		},
	}
	for _, call := range payload.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return resp
}

var _ llm.ChatAdapter = (*Adapter)(nil)
