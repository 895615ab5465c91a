package intent

import (
	"context"
	"sync"
	"time"
)

// MockExtractor is a mock implementation of Extractor for testing.
type MockExtractor struct {
	// Intents maps utterances to fixed results.
	Intents map[string]Intent
	// Err, when set, is returned for every call.
	Err error

	mu    sync.Mutex
	calls []string
}

// NewMockExtractor creates a new MockExtractor.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{Intents: make(map[string]Intent)}
}

// Extract returns the configured Intent, or a MALFORMED_RESPONSE error for unknown utterances.
func (m *MockExtractor) Extract(_ context.Context, utterance string, _ time.Time) (Intent, error) {
	m.mu.Lock()
	m.calls = append(m.calls, utterance)
	m.mu.Unlock()

	if m.Err != nil {
		return Intent{}, m.Err
	}
	if it, ok := m.Intents[utterance]; ok {
		return it, nil
	}
	return Intent{}, malformed("no mock intent for utterance", nil)
}

// Calls returns the utterances seen so far.
func (m *MockExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var _ Extractor = (*MockExtractor)(nil)
