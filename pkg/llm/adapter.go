package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript entry. Tool-role messages carry the ID and name
// of the call they answer; assistant messages may carry requested tool calls.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
}

type Context struct {
	Messages []Message
	Tools    []Tool
}

type Usage struct {
	PromptTokens int
	EvalTokens   int
	TotalTokens  int
}

type Response struct {
	Text       string
	Usage      Usage
	DoneReason string
	ToolCalls  []ToolCall
}

type ChatAdapter interface {
	Generate(ctx context.Context, input Context) (Response, error)
	MapTools(tools []Tool) (providerTools any, err error)
	Name() string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
