package chat

import "github.com/harunnryd/tanya/pkg/llm"

// Transcript is the ordered, append-only message history of one run.
// Messages are never removed or reordered once added.
type Transcript struct {
	messages []llm.Message
}

// NewTranscript seeds the history with an optional system prompt
// followed by the user's prompt.
func NewTranscript(basePrompt, prompt string) *Transcript {
	t := &Transcript{}
	if basePrompt != "" {
		t.Append(llm.Message{Role: llm.RoleSystem, Content: basePrompt})
	}
	t.Append(llm.Message{Role: llm.RoleUser, Content: prompt})
	return t
}

func (t *Transcript) Append(msg llm.Message) {
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the history in order.
func (t *Transcript) Messages() []llm.Message {
	out := make([]llm.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (llm.Message, bool) {
	if len(t.messages) == 0 {
		return llm.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// AssistantMessage converts an endpoint reply into a transcript entry.
func AssistantMessage(resp llm.Response) llm.Message {
	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Text,
		ToolCalls: resp.ToolCalls,
	}
}

// ToolMessage folds a tool result into a transcript entry answering call.
func ToolMessage(call llm.ToolCall, content string) llm.Message {
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}
