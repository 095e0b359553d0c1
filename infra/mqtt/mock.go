package mqtt

import (
	"fmt"
	"sync"
)

// Message is one recorded publish.
type Message struct {
	Payload []byte
	Retain  bool
}

// MockClient is an in-memory Client used in tests.
type MockClient struct {
	mu         sync.Mutex
	messages   map[string][]Message
	handlers   map[string]Handler
	FailTopics map[string]bool
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		messages:   make(map[string][]Message),
		handlers:   make(map[string]Handler),
		FailTopics: make(map[string]bool),
	}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockClient) Publish(topic string, payload []byte, retain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish failed")
	}
	m.messages[topic] = append(m.messages[topic], Message{Payload: payload, Retain: retain})
	return nil
}

// Subscribe registers a handler for exact-topic delivery via Inject.
func (m *MockClient) Subscribe(topic string, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// Disconnect is a no-op.
func (m *MockClient) Disconnect() {}

// Inject delivers a payload to the handler subscribed on topic.
func (m *MockClient) Inject(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	h(topic, payload)
	return true
}

// Published returns the messages recorded for a topic.
func (m *MockClient) Published(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages[topic]))
	copy(out, m.messages[topic])
	return out
}

// Last returns the most recent message on a topic.
func (m *MockClient) Last(topic string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[topic]
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}
