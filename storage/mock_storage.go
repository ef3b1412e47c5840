package storage

import (
	"context"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// GetEvent implements the Storage interface
func (m *MockStorage) GetEvent(ctx context.Context, id string) (*recurrence.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recurrence.Event), args.Error(1)
}

// ListEvents implements the Storage interface
func (m *MockStorage) ListEvents(ctx context.Context, opts *ListOptions) ([]*recurrence.Event, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recurrence.Event), args.Error(1)
}

// CreateEvent implements the Storage interface
func (m *MockStorage) CreateEvent(ctx context.Context, ev *recurrence.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// CreateEvents implements the Storage interface
func (m *MockStorage) CreateEvents(ctx context.Context, evs []*recurrence.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

// UpdateEvent implements the Storage interface
func (m *MockStorage) UpdateEvent(ctx context.Context, ev *recurrence.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// DeleteEvent implements the Storage interface
func (m *MockStorage) DeleteEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a test event with a one hour slot starting at 09:00
func NewMockEvent(id, seriesID, title, date string, repeat recurrence.Repeat) *recurrence.Event {
	return &recurrence.Event{
		ID:       id,
		SeriesID: seriesID,
		EventForm: recurrence.EventForm{
			Title:            title,
			Date:             date,
			StartTime:        "09:00",
			EndTime:          "10:00",
			Category:         "work",
			Repeat:           repeat,
			NotificationTime: 10,
		},
	}
}
