package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrUnsupportedRule is returned for rules that cannot be expressed as a
// plain frequency, interval and end date
var ErrUnsupportedRule = errors.New("unsupported recurrence rule")

var toRRuleFreq = map[recurrence.Frequency]rrule.Frequency{
	recurrence.FrequencyDaily:   rrule.DAILY,
	recurrence.FrequencyWeekly:  rrule.WEEKLY,
	recurrence.FrequencyMonthly: rrule.MONTHLY,
	recurrence.FrequencyYearly:  rrule.YEARLY,
}

// ruleStart is the first occurrence of form in loc. A form without a start
// time begins at midnight.
func ruleStart(form recurrence.EventForm, loc *time.Location) (time.Time, error) {
	if form.StartTime == "" {
		start, err := time.ParseInLocation(recurrence.DateLayout, form.Date, loc)
		if err != nil {
			return start, fmt.Errorf("invalid start date %q: %w", form.Date, err)
		}
		return start, nil
	}
	start, err := time.ParseInLocation(recurrence.DateLayout+" "+clockLayout, form.Date+" "+form.StartTime, loc)
	if err != nil {
		return start, fmt.Errorf("invalid start %q %q: %w", form.Date, form.StartTime, err)
	}
	return start, nil
}

// ToROption builds the RFC 5545 rule for a repeating form: its frequency,
// its effective interval, DTSTART at the form's date and start time in loc,
// and UNTIL at the same clock time on the effective end date, in UTC.
// Forms that do not repeat yield a nil option.
func ToROption(form recurrence.EventForm, loc *time.Location, defaultEnd time.Time) (*rrule.ROption, error) {
	freq, ok := toRRuleFreq[form.Repeat.Type]
	if !ok {
		return nil, nil
	}
	if form.Repeat.Interval < 1 {
		return nil, fmt.Errorf("interval must be at least 1, got %d", form.Repeat.Interval)
	}

	start, err := ruleStart(form, loc)
	if err != nil {
		return nil, err
	}
	end, err := recurrence.ResolveEndDate(form.Repeat, defaultEnd)
	if err != nil {
		return nil, err
	}
	// UNTIL is an instant, the last occurrence starts exactly on it
	until := time.Date(end.Year(), end.Month(), end.Day(), start.Hour(), start.Minute(), start.Second(), 0, loc)

	return &rrule.ROption{
		Freq:     freq,
		Interval: recurrence.EffectiveInterval(form.Repeat.Type, form.Repeat.Interval),
		Dtstart:  start,
		Until:    until.UTC(),
	}, nil
}

// RRuleString returns the RRULE value (without the "RRULE:" prefix) of form,
// or an empty string when it does not repeat
func RRuleString(form recurrence.EventForm, loc *time.Location, defaultEnd time.Time) (string, error) {
	opt, err := ToROption(form, loc, defaultEnd)
	if err != nil || opt == nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// FromROption converts a parsed rule back into a Repeat for an event starting
// at start. The end date is the last day, in start's location, on which an
// occurrence still begins no later than UNTIL.
// Rules using COUNT, any BY* part or a sub-daily frequency are rejected.
func FromROption(opt *rrule.ROption, start time.Time) (recurrence.Repeat, error) {
	if opt == nil {
		return recurrence.NoRepeat, nil
	}

	var freq recurrence.Frequency
	switch opt.Freq {
	case rrule.DAILY:
		freq = recurrence.FrequencyDaily
	case rrule.WEEKLY:
		freq = recurrence.FrequencyWeekly
	case rrule.MONTHLY:
		freq = recurrence.FrequencyMonthly
	case rrule.YEARLY:
		freq = recurrence.FrequencyYearly
	default:
		return recurrence.Repeat{}, fmt.Errorf("%w: frequency %v", ErrUnsupportedRule, opt.Freq)
	}

	if opt.Count != 0 {
		return recurrence.Repeat{}, fmt.Errorf("%w: COUNT", ErrUnsupportedRule)
	}
	if len(opt.Bysetpos)+len(opt.Bymonth)+len(opt.Bymonthday)+len(opt.Byyearday)+
		len(opt.Byweekno)+len(opt.Byweekday)+len(opt.Byhour)+len(opt.Byminute)+
		len(opt.Bysecond)+len(opt.Byeaster) > 0 {
		return recurrence.Repeat{}, fmt.Errorf("%w: BY* rule parts", ErrUnsupportedRule)
	}

	repeat := recurrence.Repeat{Type: freq, Interval: max(opt.Interval, 1)}
	if !opt.Until.IsZero() {
		repeat.EndDate = mo.Some(recurrence.FormatDate(lastStartDate(opt.Until, start)))
	}
	return repeat, nil
}

func lastStartDate(until, start time.Time) time.Time {
	loc := start.Location()
	u := until.In(loc)
	day := time.Date(u.Year(), u.Month(), u.Day(), start.Hour(), start.Minute(), start.Second(), 0, loc)
	if day.After(until) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// ParseRRule parses an RRULE value into a Repeat for an event starting at
// start. Floating UNTIL values are read in start's location.
func ParseRRule(value string, start time.Time) (recurrence.Repeat, error) {
	opt, err := rrule.StrToROptionInLocation(value, start.Location())
	if err != nil {
		return recurrence.Repeat{}, fmt.Errorf("parse RRULE %q: %w", value, err)
	}
	return FromROption(opt, start)
}

// Occurrences expands form in loc with rrule-go after converting it with
// ToROption. The first element is always the form's own start, even when the
// end date lies before it. Otherwise it follows RFC 5545 strictly, so it
// disagrees with recurrence.Expand only where the engine applies its two year
// interval end-month rule.
func Occurrences(form recurrence.EventForm, loc *time.Location, defaultEnd time.Time) ([]time.Time, error) {
	opt, err := ToROption(form, loc, defaultEnd)
	if err != nil {
		return nil, err
	}
	if opt == nil {
		start, err := ruleStart(form, loc)
		if err != nil {
			return nil, err
		}
		return []time.Time{start}, nil
	}

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rule: %w", err)
	}
	all := rule.All()
	if len(all) == 0 || !all[0].Equal(opt.Dtstart) {
		all = append([]time.Time{opt.Dtstart}, all...)
	}
	return all, nil
}
