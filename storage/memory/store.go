// memory based implementation for testing and demos
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/cyp0633/librepeat/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage interface using an in-memory map.
// It hands out copies, so callers can never modify a stored record in place.
type Store struct {
	mu     sync.RWMutex
	events map[string]recurrence.Event // key: event ID
	logger *slog.Logger
}

var _ storage.Storage = (*Store)(nil)

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		events: make(map[string]recurrence.Event),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "event " + id + " not found",
	}
}

func (s *Store) GetEvent(_ context.Context, id string) (*recurrence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, notFound(id)
	}

	return &ev, nil
}

func (s *Store) ListEvents(_ context.Context, opts *storage.ListOptions) ([]*recurrence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*recurrence.Event, 0, len(s.events))
	for _, ev := range s.events {
		if !opts.Matches(&ev) {
			continue
		}
		copied := ev
		events = append(events, &copied)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].ID < events[j].ID
	})

	return events, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev *recurrence.Event) error {
	return s.CreateEvents(ctx, []*recurrence.Event{ev})
}

func (s *Store) CreateEvents(_ context.Context, evs []*recurrence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before storing anything
	seen := make(map[string]struct{}, len(evs))
	for _, ev := range evs {
		if ev == nil {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "nil event"}
		}
		if ev.ID == "" {
			continue
		}
		if _, exists := s.events[ev.ID]; exists {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event " + ev.ID + " already exists"}
		}
		if _, dup := seen[ev.ID]; dup {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event " + ev.ID + " repeated in batch"}
		}
		seen[ev.ID] = struct{}{}
	}

	for _, ev := range evs {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		s.events[ev.ID] = *ev
	}

	s.logger.Debug("stored events", "count", len(evs))
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, ev *recurrence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; !exists {
		return notFound(ev.ID)
	}

	s.events[ev.ID] = *ev
	s.logger.Debug("updated event", "id", ev.ID)
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[id]; !exists {
		return notFound(id)
	}

	delete(s.events, id)
	s.logger.Debug("deleted event", "id", id)
	return nil
}
