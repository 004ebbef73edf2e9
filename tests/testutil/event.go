package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/schoolfund/backend/internal/domain/shared"
)

// MockEventHandler records every event it receives. It satisfies both
// shared.EventHandler and shared.EventPublisher, so services can publish
// straight into it without a bus.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewMockEventHandler creates a handler subscribed to eventTypes
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle implements shared.EventHandler
func (h *MockEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Publish implements shared.EventPublisher
func (h *MockEventHandler) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		_ = h.Handle(ctx, e)
	}
	return nil
}

// Handled returns a copy of the recorded events
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// CountByType tallies recorded events by type
func (h *MockEventHandler) CountByType() map[string]int {
	counts := map[string]int{}
	for _, e := range h.Handled() {
		counts[e.EventType()]++
	}
	return counts
}

// HandledCount returns the number of recorded events
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError makes Handle return err
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset drops recorded events and the configured error
func (h *MockEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// WaitForEventCount polls until handler has seen at least count events
func WaitForEventCount(t *testing.T, handler *MockEventHandler, count int, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if handler.HandledCount() >= count {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var (
	_ shared.EventHandler   = (*MockEventHandler)(nil)
	_ shared.EventPublisher = (*MockEventHandler)(nil)
)
