package llm

import "context"

// Context is the conversation state handed to a generation call.
type Context struct {
	Messages []map[string]any
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// Adapter is the reasoning capability consumed by the agent pipeline. The
// orchestrator only needs "consumes text, produces text asynchronously".
type Adapter interface {
	Generate(ctx context.Context, input Context) (Response, error)
	Stream(ctx context.Context, input Context) (<-chan string, error)
	Name() string
}

// SystemMessage builds a system-role message for the instruction script.
func SystemMessage(text string) map[string]any {
	return map[string]any{"role": "system", "content": text}
}

// UserMessage builds a user-role message from a transcript.
func UserMessage(text string) map[string]any {
	return map[string]any{"role": "user", "content": text}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(text string) map[string]any {
	return map[string]any{"role": "assistant", "content": text}
}
