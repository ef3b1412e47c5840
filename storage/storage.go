package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a not found storage error
func IsNotFound(err error) bool {
	return hasType(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is, or wraps, an already exists storage error
func IsAlreadyExists(err error) bool {
	return hasType(err, ErrAlreadyExists)
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// ListOptions provides options for listing events
type ListOptions struct {
	// Date range filter, both ends inclusive
	Start *time.Time
	End   *time.Time

	// SeriesID restricts the listing to one recurring series
	SeriesID string
}

// Matches reports whether ev passes the filter. A nil receiver matches everything.
// Events with an unparseable date never match a date range.
func (o *ListOptions) Matches(ev *recurrence.Event) bool {
	if o == nil {
		return true
	}
	if o.SeriesID != "" && ev.SeriesID != o.SeriesID {
		return false
	}
	if o.Start != nil || o.End != nil {
		d, err := recurrence.ParseDate(ev.Date)
		if err != nil {
			return false
		}
		if o.Start != nil && d.Before(*o.Start) {
			return false
		}
		if o.End != nil && d.After(*o.End) {
			return false
		}
	}
	return true
}

// Storage is the interface that must be implemented by event storage backends.
//
// Every stored occurrence is an independent record: updating or deleting one
// must never touch another record, even one from the same series.
type Storage interface {
	// GetEvent retrieves one event by ID
	GetEvent(ctx context.Context, id string) (*recurrence.Event, error)
	// ListEvents retrieves events ordered by date, then ID
	ListEvents(ctx context.Context, opts *ListOptions) ([]*recurrence.Event, error)
	// CreateEvent stores a new event. An empty ID is filled in by the backend.
	CreateEvent(ctx context.Context, ev *recurrence.Event) error
	// CreateEvents stores a batch of new events. Either all of them are stored or none.
	CreateEvents(ctx context.Context, evs []*recurrence.Event) error
	// UpdateEvent replaces an existing event
	UpdateEvent(ctx context.Context, ev *recurrence.Event) error
	// DeleteEvent removes one event
	DeleteEvent(ctx context.Context, id string) error
}
