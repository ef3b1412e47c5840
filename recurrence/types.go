package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// DateLayout is the calendar date format used by event forms and records
const DateLayout = "2006-01-02"

// Frequency is the repetition unit of a recurring event
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is one of the known frequencies
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// Repeat describes how an event recurs
type Repeat struct {
	Type     Frequency `json:"type"`
	Interval int       `json:"interval"`
	// EndDate is the last date (inclusive) an occurrence may fall on, as YYYY-MM-DD.
	// A missing or empty value means the engine's default end date applies.
	EndDate mo.Option[string] `json:"endDate"`
}

// NoRepeat is the repeat value of a single, non-recurring event
var NoRepeat = Repeat{Type: FrequencyNone, Interval: 1}

// EventForm is the descriptive part of an event plus its recurrence settings.
// It is the template fed to the expander and the payload of every stored instance.
type EventForm struct {
	Title       string `json:"title"`
	Date        string `json:"date"`      // YYYY-MM-DD
	StartTime   string `json:"startTime"` // HH:MM
	EndTime     string `json:"endTime"`   // HH:MM
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	Repeat      Repeat `json:"repeat"`
	// NotificationTime is the reminder lead time in minutes
	NotificationTime int `json:"notificationTime"`
}

// IsRepeating reports whether the event belongs to a recurring series.
// Views use it to decide whether to show a recurrence indicator.
func (f EventForm) IsRepeating() bool {
	return f.Repeat.Type != FrequencyNone && f.Repeat.Type != ""
}

// Event is a stored occurrence
type Event struct {
	ID string `json:"id"`
	// SeriesID groups instances that were created together from one repeating form.
	// Empty for single events and for occurrences that were edited out of their series.
	SeriesID string `json:"seriesId,omitempty"`
	EventForm
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
