package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

const (
	// ProductID is written as PRODID of every calendar produced here
	ProductID = "-//cyp0633//librepeat//EN"
	// PropSeriesID carries the series an instance was created with
	PropSeriesID = "X-LIBREPEAT-SERIES"

	clockLayout = "15:04"
)

// eventTimes combines the form's date with its start and end clock times in loc.
// A missing end time makes the event instantaneous.
func eventTimes(form recurrence.EventForm, loc *time.Location) (start, end time.Time, err error) {
	start, err = time.ParseInLocation(recurrence.DateLayout+" "+clockLayout, form.Date+" "+form.StartTime, loc)
	if err != nil {
		return start, end, fmt.Errorf("invalid start %q %q: %w", form.Date, form.StartTime, err)
	}
	if form.EndTime == "" {
		return start, start, nil
	}
	end, err = time.ParseInLocation(recurrence.DateLayout+" "+clockLayout, form.Date+" "+form.EndTime, loc)
	if err != nil {
		return start, end, fmt.Errorf("invalid end %q %q: %w", form.Date, form.EndTime, err)
	}
	return start, end, nil
}

func formatTrigger(minutes int) string {
	return fmt.Sprintf("-PT%dM", minutes)
}

// parseTrigger reads a relative alarm trigger back into lead minutes
func parseTrigger(value string) (int, error) {
	prop := ical.NewProp(ical.PropTrigger)
	prop.Value = value
	d, err := prop.Duration()
	if err != nil {
		return 0, err
	}
	return int(-d / time.Minute), nil
}

// NewEventComponent builds a VEVENT for one stored occurrence.
// The occurrence is written on its own, without an RRULE.
func NewEventComponent(ev recurrence.Event, loc *time.Location, stamp time.Time) (*ical.Event, error) {
	start, end, err := eventTimes(ev.EventForm, loc)
	if err != nil {
		return nil, err
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	event.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		event.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		event.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Category != "" {
		event.Props.SetText(ical.PropCategories, ev.Category)
	}
	if ev.SeriesID != "" {
		event.Props.SetText(PropSeriesID, ev.SeriesID)
	}

	if ev.NotificationTime > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, ev.Title)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = formatTrigger(ev.NotificationTime)
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)
	}

	return event, nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// Encode writes every occurrence as its own VEVENT of a single VCALENDAR
func Encode(w io.Writer, events []*recurrence.Event, loc *time.Location) error {
	cal := newCalendar()
	stamp := time.Now()
	for _, ev := range events {
		comp, err := NewEventComponent(*ev, loc, stamp)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		cal.Children = append(cal.Children, comp.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// EncodeSeries writes ev as a single master VEVENT carrying the RRULE of its
// repeat, for clients that expand recurrences themselves
func EncodeSeries(w io.Writer, ev recurrence.Event, loc *time.Location, defaultEnd time.Time) error {
	comp, err := NewEventComponent(ev, loc, time.Now())
	if err != nil {
		return err
	}

	opt, err := ToROption(ev.EventForm, loc, defaultEnd)
	if err != nil {
		return err
	}
	if opt != nil {
		// RRULE values contain ';' and must not be text-escaped
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = opt.RRuleString()
		comp.Props.Set(prop)
	}

	cal := newCalendar()
	cal.Children = append(cal.Children, comp.Component)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// Decode reads every VEVENT of every VCALENDAR in r. Times are converted to
// loc before being split into date and clock fields.
func Decode(r io.Reader, loc *time.Location) ([]recurrence.Event, error) {
	dec := ical.NewDecoder(r)

	var events []recurrence.Event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Events() {
			ev, err := eventFromComponent(comp.Component, loc)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

func textProp(props ical.Props, name string) mo.Option[string] {
	if prop := props.Get(name); prop != nil {
		if text, err := prop.Text(); err == nil {
			return mo.Some(text)
		}
	}
	return mo.None[string]()
}

func eventFromComponent(comp *ical.Component, loc *time.Location) (recurrence.Event, error) {
	uid := textProp(comp.Props, ical.PropUID).OrEmpty()

	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		return recurrence.Event{}, fmt.Errorf("event %s: DTSTART: %w", uid, err)
	}
	start = start.In(loc)

	end := start
	if comp.Props.Get(ical.PropDateTimeEnd) != nil {
		end, err = comp.Props.DateTime(ical.PropDateTimeEnd, loc)
		if err != nil {
			return recurrence.Event{}, fmt.Errorf("event %s: DTEND: %w", uid, err)
		}
		end = end.In(loc)
	}

	ev := recurrence.Event{
		ID:       uid,
		SeriesID: textProp(comp.Props, PropSeriesID).OrEmpty(),
		EventForm: recurrence.EventForm{
			Title:       textProp(comp.Props, ical.PropSummary).OrEmpty(),
			Date:        recurrence.FormatDate(start),
			StartTime:   start.Format(clockLayout),
			EndTime:     end.Format(clockLayout),
			Description: textProp(comp.Props, ical.PropDescription).OrEmpty(),
			Location:    textProp(comp.Props, ical.PropLocation).OrEmpty(),
			Category:    textProp(comp.Props, ical.PropCategories).OrEmpty(),
			Repeat:      recurrence.NoRepeat,
		},
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		repeat, err := ParseRRule(prop.Value, start)
		if err != nil {
			return recurrence.Event{}, fmt.Errorf("event %s: %w", uid, err)
		}
		ev.Repeat = repeat
	}

	for _, child := range comp.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if trigger := child.Props.Get(ical.PropTrigger); trigger != nil {
			if minutes, err := parseTrigger(trigger.Value); err == nil {
				ev.NotificationTime = minutes
				break
			}
		}
	}

	return ev, nil
}
