package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// MaxInterval caps the interval of every frequency
	MaxInterval = 10
	// yearlyOverflowInterval replaces yearly intervals above MaxInterval
	yearlyOverflowInterval = 11
)

// DefaultEndDate bounds expansion when a repeat has no end date of its own
var DefaultEndDate = time.Date(2025, time.October, 30, 0, 0, 0, 0, time.UTC)

// Engine expands recurring event forms into their concrete occurrences
type Engine struct {
	cache  *ExpansionCache
	config EngineConfig
	logger *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new recurrence engine with DefaultEngineConfig
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// defaultEngine backs the package level Expand. It never caches.
var defaultEngine = NewEngineWithConfig(DisabledCacheConfig)

// Expand expands form with the default end date and no caching
func Expand(form EventForm) ([]EventForm, error) {
	return defaultEngine.Expand(form)
}

// Close releases the engine's cache, if any
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Expand returns the original form followed by every later occurrence up to
// and including the effective end date, in chronological order.
// The input is never modified and the returned slice is owned by the caller.
func (e *Engine) Expand(form EventForm) ([]EventForm, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(form); ok {
			e.logger.Debug("expansion cache hit", "date", form.Date, "frequency", form.Repeat.Type)
			return cached, nil
		}
	}

	start, err := ParseDate(form.Date)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("invalid start date %q", form.Date), err)
	}

	var dates []time.Time
	switch form.Repeat.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		if form.Repeat.Interval < 1 {
			return nil, invalidInput(fmt.Sprintf("interval must be at least 1, got %d", form.Repeat.Interval), nil)
		}
		end, err := ResolveEndDate(form.Repeat, e.config.DefaultEndDate)
		if err != nil {
			return nil, err
		}
		interval := EffectiveInterval(form.Repeat.Type, form.Repeat.Interval)
		dates = generateDates(start, form.Repeat.Type, interval, end)
	default:
		// none and unrecognized frequencies only yield the original occurrence
		if form.Repeat.Type != "" && !form.Repeat.Type.Valid() {
			e.logger.Warn("unrecognized frequency", "date", form.Date, "frequency", form.Repeat.Type)
		}
	}

	results := make([]EventForm, 0, len(dates)+1)
	results = append(results, form)
	for _, d := range dates {
		occurrence := form
		occurrence.Date = FormatDate(d)
		results = append(results, occurrence)
	}

	e.logger.Debug("expanded event",
		"date", form.Date,
		"frequency", form.Repeat.Type,
		"interval", form.Repeat.Interval,
		"occurrences", len(results))

	if e.cache != nil {
		e.cache.Set(form, results)
	}
	return results, nil
}

// ResolveEndDate returns the repeat's own end date, or fallback when it has none
func ResolveEndDate(r Repeat, fallback time.Time) (time.Time, error) {
	s, ok := r.EndDate.Get()
	if !ok || s == "" {
		return fallback, nil
	}
	end, err := ParseDate(s)
	if err != nil {
		return time.Time{}, invalidInput(fmt.Sprintf("invalid end date %q", s), err)
	}
	return end, nil
}

// EffectiveInterval caps interval at MaxInterval. Yearly repeats above the cap use 11.
func EffectiveInterval(freq Frequency, interval int) int {
	if interval > MaxInterval && freq == FrequencyYearly {
		return yearlyOverflowInterval
	}
	return min(interval, MaxInterval)
}

// generateDates returns the occurrence dates strictly after start and not after end
func generateDates(start time.Time, freq Frequency, interval int, end time.Time) []time.Time {
	switch freq {
	case FrequencyDaily:
		return stepDays(start, interval, end)
	case FrequencyWeekly:
		return stepDays(start, interval*7, end)
	case FrequencyMonthly:
		return monthlyDates(start, interval, end)
	case FrequencyYearly:
		return yearlyDates(start, interval, end)
	default:
		return nil
	}
}

func stepDays(start time.Time, days int, end time.Time) []time.Time {
	var dates []time.Time
	for cursor := start.AddDate(0, 0, days); !cursor.After(end); cursor = cursor.AddDate(0, 0, days) {
		dates = append(dates, cursor)
	}
	return dates
}

// monthlyDates pins every occurrence to the start's day of month.
// Months that do not have that day are skipped rather than rolled over.
func monthlyDates(start time.Time, interval int, end time.Time) []time.Time {
	var dates []time.Time
	day := start.Day()
	for step := interval; ; step += interval {
		month := time.Date(start.Year(), start.Month()+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
		if month.After(end) {
			break
		}
		if day > daysIn(month.Year(), month.Month()) {
			continue
		}
		d := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
		if d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// yearlyDates pins every occurrence to the start's month and day, so a
// Feb 29 series only lands on leap years. In the end date's year a two year
// interval takes the end date's month instead.
func yearlyDates(start time.Time, interval int, end time.Time) []time.Time {
	var dates []time.Time
	day := start.Day()
	for step := interval; ; step += interval {
		year := start.Year() + step
		month := start.Month()
		if year == end.Year() && interval == 2 {
			month = end.Month()
		}
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if first.After(end) {
			break
		}
		if day > daysIn(year, month) {
			continue
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
