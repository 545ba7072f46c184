package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one queued answer of a MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays queued responses in order and records every request.
// An empty queue yields ErrProviderUnavailable. Content is returned as
// queued, without schema validation.
type MockProvider struct {
	mu      sync.Mutex
	pending []MockResponse
	Calls   []Request
}

// NewMockProvider returns a mock that replays responses in order.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{pending: responses}
}

// Generate records req and returns the next queued response.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.pending) == 0 {
		return nil, &ErrProviderUnavailable{}
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string { return "mock" }

// Enqueue appends responses to the queue.
func (m *MockProvider) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, responses...)
}

// CallCount returns the number of Generate calls so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
