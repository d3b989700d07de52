package mock

import (
	"context"
	"sync"

	"github.com/poiesic/distillery/ai"
)

// CompleteCall records one invocation of MockCompleter.Complete.
type CompleteCall struct {
	Msgs   []ai.Message
	Handle string
}

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Response and echoes the handle.
	CompleteFunc func(ctx context.Context, msgs []ai.Message, handle string) (ai.Completion, error)

	// Response is the default reply text.
	Response string

	mu    sync.Mutex
	calls []CompleteCall
}

// NewMockCompleter creates a mock completer that always replies with response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{Response: response}
}

// Complete records the call and returns the injected or default reply.
func (m *MockCompleter) Complete(ctx context.Context, msgs []ai.Message, handle string) (ai.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompleteCall{Msgs: append([]ai.Message(nil), msgs...), Handle: handle})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, msgs, handle)
	}
	return ai.Completion{Text: m.Response, Handle: handle}, nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockCompleter) Calls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleteCall(nil), m.calls...)
}

// Reset clears recorded calls and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
