package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply for MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// Text scripts a plain-text reply.
func Text(s string) MockResponse {
	raw, _ := json.Marshal(s)
	return MockResponse{Content: raw}
}

// JSON scripts a structured reply.
func JSON(v any) MockResponse {
	raw, err := json.Marshal(v)
	return MockResponse{Content: raw, Err: err}
}

// MockProvider replays scripted replies in order and records every request.
// Schema validation still applies, so malformed scripts fail the same way a
// real provider would.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return nil, &ErrProviderUnavailable{}
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}
	return finish(req, next.Content, next.Usage, "mock", "end")
}

func (m *MockProvider) ModelID() string { return "mock" }

// Push queues more replies.
func (m *MockProvider) Push(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Calls returns a copy of the requests seen so far.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
