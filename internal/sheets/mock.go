package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/rofr-ledger/internal/model"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	PublishFunc      func(ctx context.Context, entries []model.ContractEntry) error
	PublishCalls     []PublishCall
	LastEntries      []model.ContractEntry
	PublishCallCount int
	mu               sync.Mutex
}

// PublishCall represents a single call to Publish.
type PublishCall struct {
	Error   error
	Entries []model.ContractEntry
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishCalls: make([]PublishCall, 0),
	}
}

// Publish implements the Publisher interface.
func (m *MockPublisher) Publish(ctx context.Context, entries []model.ContractEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	m.LastEntries = entries

	var err error
	if m.PublishFunc != nil {
		err = m.PublishFunc(ctx, entries)
	}

	m.PublishCalls = append(m.PublishCalls, PublishCall{
		Entries: entries,
		Error:   err,
	})

	return err
}

// GetPublishCalls returns a copy of all publish calls.
func (m *MockPublisher) GetPublishCalls() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]PublishCall, len(m.PublishCalls))
	copy(calls, m.PublishCalls)
	return calls
}

// SetPublishError configures the mock to return err from every Publish call.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishFunc = func(_ context.Context, _ []model.ContractEntry) error {
		return err
	}
}
