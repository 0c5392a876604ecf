package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu               sync.RWMutex
	txEvents         []*TransactionEvent
	redemptionEvents []*RedemptionEvent
	publishError     error
	closed           bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		txEvents:         make([]*TransactionEvent, 0),
		redemptionEvents: make([]*RedemptionEvent, 0),
	}
}

// PublishTransaction records the event and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, event *TransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.txEvents = append(m.txEvents, event)
	return nil
}

// PublishRedemption records the event and returns any configured error.
func (m *MockPublisher) PublishRedemption(ctx context.Context, event *RedemptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.redemptionEvents = append(m.redemptionEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// TransactionEvents returns all published transaction events.
func (m *MockPublisher) TransactionEvents() []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*TransactionEvent, len(m.txEvents))
	copy(events, m.txEvents)
	return events
}

// RedemptionEvents returns all published redemption events.
func (m *MockPublisher) RedemptionEvents() []*RedemptionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*RedemptionEvent, len(m.redemptionEvents))
	copy(events, m.redemptionEvents)
	return events
}

// TransactionEventsOfKind returns transaction events with the given kind.
func (m *MockPublisher) TransactionEventsOfKind(kind string) []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*TransactionEvent, 0)
	for _, event := range m.txEvents {
		if event.Kind == kind {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all recorded events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txEvents = make([]*TransactionEvent, 0)
	m.redemptionEvents = make([]*RedemptionEvent, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
