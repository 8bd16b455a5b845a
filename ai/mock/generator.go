package mock

import (
	"context"
	"sync"
)

// MockTextGenerator is a test double for ai.TextGenerator.
// It allows custom behavior injection via function fields, or scripted
// responses that are replayed in order.
type MockTextGenerator struct {
	// CompleteFunc is called by Complete if set.
	// If nil, scripted responses are used, then the default echo behavior.
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

	mu        sync.Mutex
	responses []string
	next      int
	prompts   []string
	callCount int
}

// NewMockTextGenerator creates a mock generator with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{}
}

// NewMockTextGeneratorWithResponses creates a mock generator that replays
// the given responses in order. When the script is exhausted the last
// response is repeated.
func NewMockTextGeneratorWithResponses(responses ...string) *MockTextGenerator {
	return &MockTextGenerator{responses: responses}
}

// Complete returns the next scripted response, or echoes a fixed marker
// when no script was provided.
func (m *MockTextGenerator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, maxTokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) > 0 {
		resp := m.responses[m.next]
		if m.next < len(m.responses)-1 {
			m.next++
		}
		return resp, nil
	}

	return "mock completion", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockTextGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns the prompts received so far, in call order.
func (m *MockTextGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears the call count, recorded prompts and custom functions.
func (m *MockTextGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.next = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
