// Package postgres stores event records in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/cyp0633/librepeat/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"
)

// Store implements storage.Storage on top of a pgx pool.
// Call Migrate once before using it against a fresh database.
type Store struct {
	pool   *pgxpool.Pool
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

// New creates a store using pool
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

const eventColumns = `id, series_id, title, date, start_time, end_time, description,
location, category, repeat_type, repeat_interval, repeat_end_date, notification_time`

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "event " + id + " not found",
	}
}

func endDateArg(opt mo.Option[string]) *string {
	if v, ok := opt.Get(); ok {
		return &v
	}
	return nil
}

func scanEvent(row pgx.Row) (*recurrence.Event, error) {
	var (
		ev        recurrence.Event
		repeatTyp string
		endDate   *string
	)
	err := row.Scan(&ev.ID, &ev.SeriesID, &ev.Title, &ev.Date, &ev.StartTime, &ev.EndTime,
		&ev.Description, &ev.Location, &ev.Category, &repeatTyp, &ev.Repeat.Interval,
		&endDate, &ev.NotificationTime)
	if err != nil {
		return nil, err
	}
	ev.Repeat.Type = recurrence.Frequency(repeatTyp)
	if endDate != nil {
		ev.Repeat.EndDate = mo.Some(*endDate)
	}
	return &ev, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*recurrence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	ev, err := scanEvent(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ListEvents narrows by series in SQL and applies the date range with
// ListOptions.Matches so that both backends filter identically
func (s *Store) ListEvents(ctx context.Context, opts *storage.ListOptions) ([]*recurrence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if opts != nil && opts.SeriesID != "" {
		query += ` WHERE series_id = $1`
		args = append(args, opts.SeriesID)
	}
	query += ` ORDER BY date, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*recurrence.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if opts.Matches(ev) {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev *recurrence.Event) error {
	return s.CreateEvents(ctx, []*recurrence.Event{ev})
}

// CreateEvents inserts the batch in one transaction. IDs are only assigned
// to the caller's events once the transaction has committed.
func (s *Store) CreateEvents(ctx context.Context, evs []*recurrence.Event) error {
	ids := make([]string, len(evs))
	for i, ev := range evs {
		if ev == nil {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "nil event"}
		}
		ids[i] = ev.ID
		if ids[i] == "" {
			ids[i] = uuid.New().String()
		}
	}

	const stmt = `
INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	err := withTx(ctx, s.pool, func(ctx context.Context) error {
		for i, ev := range evs {
			_, err := s.exec(ctx, stmt, ids[i], ev.SeriesID, ev.Title, ev.Date, ev.StartTime, ev.EndTime,
				ev.Description, ev.Location, ev.Category, string(ev.Repeat.Type), ev.Repeat.Interval,
				endDateArg(ev.Repeat.EndDate), ev.NotificationTime)
			if err != nil {
				if isUniqueViolation(err) {
					return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event " + ids[i] + " already exists", Err: err}
				}
				return fmt.Errorf("insert event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, ev := range evs {
		ev.ID = ids[i]
	}
	s.logger.Debug("stored events", "count", len(evs))
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev *recurrence.Event) error {
	const stmt = `
UPDATE events SET
	series_id = $2, title = $3, date = $4, start_time = $5, end_time = $6,
	description = $7, location = $8, category = $9, repeat_type = $10,
	repeat_interval = $11, repeat_end_date = $12, notification_time = $13
WHERE id = $1`

	tag, err := s.exec(ctx, stmt, ev.ID, ev.SeriesID, ev.Title, ev.Date, ev.StartTime, ev.EndTime,
		ev.Description, ev.Location, ev.Category, string(ev.Repeat.Type), ev.Repeat.Interval,
		endDateArg(ev.Repeat.EndDate), ev.NotificationTime)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(ev.ID)
	}

	s.logger.Debug("updated event", "id", ev.ID)
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}

	s.logger.Debug("deleted event", "id", id)
	return nil
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return s.pool.Exec(ctx, sql, args...)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

func (s *Store) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}
