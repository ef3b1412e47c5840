package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/librepeat/recurrence"
	"github.com/samber/mo"
)

// XCalNamespace is the RFC 6321 xCal namespace
const XCalNamespace = "urn:ietf:params:xml:ns:icalendar-2.0"

var untilReplacer = strings.NewReplacer("-", "", ":", "")

const (
	xcalDateTime    = "2006-01-02T15:04:05"
	xcalDateTimeUTC = "2006-01-02T15:04:05Z"
)

func addTextProp(props *etree.Element, name, value string) {
	props.CreateElement(name).CreateElement("text").SetText(value)
}

func addDateTimeProp(props *etree.Element, name string, t time.Time) {
	prop := props.CreateElement(name)
	if t.Location() == time.UTC {
		prop.CreateElement("date-time").SetText(t.Format(xcalDateTimeUTC))
		return
	}
	prop.CreateElement("parameters").CreateElement("tzid").CreateElement("text").SetText(t.Location().String())
	prop.CreateElement("date-time").SetText(t.Format(xcalDateTime))
}

// EncodeXCal writes the occurrences as an RFC 6321 xCal document.
// Repeating instances carry their rule so that DecodeXCal restores the repeat.
func EncodeXCal(w io.Writer, events []*recurrence.Event, loc *time.Location, defaultEnd time.Time) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("icalendar")
	root.CreateAttr("xmlns", XCalNamespace)

	vcal := root.CreateElement("vcalendar")
	calProps := vcal.CreateElement("properties")
	addTextProp(calProps, "prodid", ProductID)
	addTextProp(calProps, "version", "2.0")
	components := vcal.CreateElement("components")

	stamp := time.Now().UTC()
	for _, ev := range events {
		start, end, err := eventTimes(ev.EventForm, loc)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}

		vevent := components.CreateElement("vevent")
		props := vevent.CreateElement("properties")
		addTextProp(props, "uid", ev.ID)
		addDateTimeProp(props, "dtstamp", stamp)
		addDateTimeProp(props, "dtstart", start)
		addDateTimeProp(props, "dtend", end)
		addTextProp(props, "summary", ev.Title)
		if ev.Description != "" {
			addTextProp(props, "description", ev.Description)
		}
		if ev.Location != "" {
			addTextProp(props, "location", ev.Location)
		}
		if ev.Category != "" {
			addTextProp(props, "categories", ev.Category)
		}
		if ev.SeriesID != "" {
			addTextProp(props, strings.ToLower(PropSeriesID), ev.SeriesID)
		}

		opt, err := ToROption(ev.EventForm, loc, defaultEnd)
		if err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if opt != nil {
			recur := props.CreateElement("rrule").CreateElement("recur")
			recur.CreateElement("freq").SetText(strings.ToUpper(string(ev.Repeat.Type)))
			recur.CreateElement("interval").SetText(strconv.Itoa(opt.Interval))
			recur.CreateElement("until").SetText(opt.Until.Format(xcalDateTimeUTC))
		}

		if ev.NotificationTime > 0 {
			valarm := vevent.CreateElement("components").CreateElement("valarm")
			alarmProps := valarm.CreateElement("properties")
			addTextProp(alarmProps, "action", "DISPLAY")
			addTextProp(alarmProps, "description", ev.Title)
			alarmProps.CreateElement("trigger").CreateElement("duration").SetText(formatTrigger(ev.NotificationTime))
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xCal: %w", err)
	}
	return nil
}

func propText(props *etree.Element, path string) mo.Option[string] {
	if props == nil {
		return mo.None[string]()
	}
	if el := props.FindElement(path); el != nil {
		return mo.Some(el.Text())
	}
	return mo.None[string]()
}

func parseXCalDateTime(prop *etree.Element, loc *time.Location) (time.Time, error) {
	value := propText(prop, "date-time").OrEmpty()
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(xcalDateTimeUTC, value)
		return t.In(loc), err
	}

	zone := loc
	if tzid, ok := propText(prop, "parameters/tzid/text").Get(); ok {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown tzid %q: %w", tzid, err)
		}
		zone = l
	}
	t, err := time.ParseInLocation(xcalDateTime, value, zone)
	return t.In(loc), err
}

// DecodeXCal reads every vevent of an xCal document
func DecodeXCal(r io.Reader, loc *time.Location) ([]recurrence.Event, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read xCal: %w", err)
	}
	if root := doc.Root(); root == nil || root.Tag != "icalendar" {
		return nil, fmt.Errorf("not an xCal document")
	}

	var events []recurrence.Event
	for _, vevent := range doc.FindElements("//vevent") {
		props := vevent.SelectElement("properties")
		if props == nil {
			continue
		}
		uid := propText(props, "uid/text").OrEmpty()

		dtstart := props.SelectElement("dtstart")
		if dtstart == nil {
			return nil, fmt.Errorf("event %s: missing dtstart", uid)
		}
		start, err := parseXCalDateTime(dtstart, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: dtstart: %w", uid, err)
		}
		end := start
		if dtend := props.SelectElement("dtend"); dtend != nil {
			if end, err = parseXCalDateTime(dtend, loc); err != nil {
				return nil, fmt.Errorf("event %s: dtend: %w", uid, err)
			}
		}

		ev := recurrence.Event{
			ID:       uid,
			SeriesID: propText(props, strings.ToLower(PropSeriesID)+"/text").OrEmpty(),
			EventForm: recurrence.EventForm{
				Title:       propText(props, "summary/text").OrEmpty(),
				Date:        recurrence.FormatDate(start),
				StartTime:   start.Format(clockLayout),
				EndTime:     end.Format(clockLayout),
				Description: propText(props, "description/text").OrEmpty(),
				Location:    propText(props, "location/text").OrEmpty(),
				Category:    propText(props, "categories/text").OrEmpty(),
				Repeat:      recurrence.NoRepeat,
			},
		}

		if recur := props.FindElement("rrule/recur"); recur != nil {
			repeat, err := repeatFromRecur(recur, start)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", uid, err)
			}
			ev.Repeat = repeat
		}

		if trigger, ok := propText(vevent, "components/valarm/properties/trigger/duration").Get(); ok {
			if minutes, err := parseTrigger(trigger); err == nil {
				ev.NotificationTime = minutes
			}
		}

		events = append(events, ev)
	}
	return events, nil
}

// repeatFromRecur maps an xCal recur element onto the equivalent RRULE text
// so that the same validation applies as for iCalendar input
func repeatFromRecur(recur *etree.Element, start time.Time) (recurrence.Repeat, error) {
	parts := make([]string, 0, len(recur.ChildElements()))
	for _, part := range recur.ChildElements() {
		value := strings.TrimSpace(part.Text())
		if part.Tag == "until" {
			// xCal writes 2025-10-30 or 2025-10-30T00:00:00Z, RRULE wants 20251030 or 20251030T000000Z
			value = untilReplacer.Replace(value)
		}
		parts = append(parts, strings.ToUpper(part.Tag)+"="+value)
	}
	return ParseRRule(strings.Join(parts, ";"), start)
}
