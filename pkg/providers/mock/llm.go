package mock

import (
	"context"
	"sync"

	"github.com/svara-ai/svara/pkg/llm"
)

// LLM is a scriptable reasoning adapter for tests. Replies are consumed in
// order; when the script runs out a fixed fallback is returned.
type LLM struct {
	Replies  []string
	Fallback string

	mu    sync.Mutex
	calls []llm.Context
	next  int
}

func NewLLM(replies ...string) *LLM {
	return &LLM{Replies: replies, Fallback: "Understood."}
}

func (m *LLM) Name() string { return "mock-llm" }

func (m *LLM) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	text := m.Fallback
	if m.next < len(m.Replies) {
		text = m.Replies[m.next]
		m.next++
	}
	return llm.Response{Text: text, FinishReason: "stop"}, nil
}

func (m *LLM) Stream(ctx context.Context, input llm.Context) (<-chan string, error) {
	resp, err := m.Generate(ctx, input)
	if err != nil {
		return nil, err
	}
	out := make(chan string, 1)
	out <- resp.Text
	close(out)
	return out, nil
}

// Calls returns the generation inputs seen so far.
func (m *LLM) Calls() []llm.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Context(nil), m.calls...)
}
