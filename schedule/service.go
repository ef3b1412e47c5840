// Package schedule turns event forms into stored occurrences and applies
// single occurrence edits and deletions.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/cyp0633/librepeat/storage"
	"github.com/google/uuid"
)

// Service coordinates the recurrence engine with an event store
type Service struct {
	engine *recurrence.Engine
	store  storage.Storage
	logger *slog.Logger
	newID  func() string
}

// Option represents a configuration option for the Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeriesIDGenerator replaces the uuid based series ID generator
func WithSeriesIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService creates a service expanding forms with engine and persisting them in store
func NewService(engine *recurrence.Engine, store storage.Storage, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateEvent expands form and stores every occurrence as its own record.
// Occurrences of a repeating form share a freshly generated series ID.
func (s *Service) CreateEvent(ctx context.Context, form recurrence.EventForm) ([]*recurrence.Event, error) {
	forms, err := s.engine.Expand(form)
	if err != nil {
		return nil, fmt.Errorf("expand event: %w", err)
	}

	var seriesID string
	if form.IsRepeating() && len(forms) > 1 {
		seriesID = s.newID()
	}

	events := make([]*recurrence.Event, 0, len(forms))
	for _, f := range forms {
		events = append(events, &recurrence.Event{SeriesID: seriesID, EventForm: f})
	}

	if err := s.store.CreateEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("store occurrences: %w", err)
	}

	s.logger.Info("created event",
		"title", form.Title,
		"frequency", form.Repeat.Type,
		"series", seriesID,
		"occurrences", len(events))
	return events, nil
}

// UpdateOccurrence rewrites the single record id with form.
// The record always leaves its series: its repeat becomes none and its
// series ID is cleared. No other record is touched.
func (s *Service) UpdateOccurrence(ctx context.Context, id string, form recurrence.EventForm) (*recurrence.Event, error) {
	existing, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}

	if _, err := recurrence.ParseDate(form.Date); err != nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: fmt.Sprintf("invalid date %q", form.Date), Err: err}
	}

	updated := &recurrence.Event{ID: existing.ID, EventForm: form}
	updated.Repeat = recurrence.NoRepeat

	if err := s.store.UpdateEvent(ctx, updated); err != nil {
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}

	s.logger.Info("updated occurrence", "id", id, "left_series", existing.SeriesID)
	return updated, nil
}

// DeleteOccurrence removes the single record id, leaving the rest of its series in place
func (s *Service) DeleteOccurrence(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}

	s.logger.Info("deleted occurrence", "id", id)
	return nil
}

// ListEvents returns stored events matching opts
func (s *Service) ListEvents(ctx context.Context, opts *storage.ListOptions) ([]*recurrence.Event, error) {
	events, err := s.store.ListEvents(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Series returns the occurrences still attached to seriesID
func (s *Service) Series(ctx context.Context, seriesID string) ([]*recurrence.Event, error) {
	if seriesID == "" {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "empty series ID"}
	}
	return s.ListEvents(ctx, &storage.ListOptions{SeriesID: seriesID})
}
