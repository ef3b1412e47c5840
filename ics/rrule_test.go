package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

var testEnd = time.Date(2025, time.October, 30, 0, 0, 0, 0, time.UTC)

func form(date string, freq recurrence.Frequency, interval int, end string) recurrence.EventForm {
	f := recurrence.EventForm{
		Title:     "Standup",
		Date:      date,
		StartTime: "09:00",
		EndTime:   "09:15",
		Repeat:    recurrence.Repeat{Type: freq, Interval: interval},
	}
	if end != "" {
		f.Repeat.EndDate = mo.Some(end)
	}
	return f
}

func TestToROption(t *testing.T) {
	opt, err := ToROption(form("2025-01-10", recurrence.FrequencyWeekly, 2, "2025-03-01"), time.UTC, testEnd)
	require.NoError(t, err)
	require.NotNil(t, opt)

	assert.Equal(t, rrule.WEEKLY, opt.Freq)
	assert.Equal(t, 2, opt.Interval)
	assert.Equal(t, time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC), opt.Dtstart)
	assert.Equal(t, time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC), opt.Until)
}

func TestToROption_Location(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	opt, err := ToROption(form("2025-01-10", recurrence.FrequencyDaily, 1, "2025-01-20"), seoul, testEnd)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, time.January, 10, 9, 0, 0, 0, seoul).Equal(opt.Dtstart))
	assert.Equal(t, seoul, opt.Dtstart.Location())
	// 09:00 in Seoul is midnight UTC
	assert.Equal(t, time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC), opt.Until)
	assert.Contains(t, opt.RRuleString(), "UNTIL=20250120T000000Z")

	allDay := form("2025-01-10", recurrence.FrequencyDaily, 1, "2025-01-20")
	allDay.StartTime = ""
	opt, err = ToROption(allDay, seoul, testEnd)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, time.January, 10, 0, 0, 0, 0, seoul).Equal(opt.Dtstart))
	assert.Equal(t, time.Date(2025, time.January, 19, 15, 0, 0, 0, time.UTC), opt.Until)
}

func TestToROption_DefaultsAndCaps(t *testing.T) {
	opt, err := ToROption(form("2025-01-01", recurrence.FrequencyDaily, 25, ""), time.UTC, testEnd)
	require.NoError(t, err)
	assert.Equal(t, recurrence.MaxInterval, opt.Interval)
	assert.Equal(t, testEnd.Add(9*time.Hour), opt.Until)

	opt, err = ToROption(form("2000-01-01", recurrence.FrequencyYearly, 12, ""), time.UTC, testEnd)
	require.NoError(t, err)
	assert.Equal(t, 11, opt.Interval)
}

func TestToROption_NotRepeating(t *testing.T) {
	opt, err := ToROption(form("2025-01-01", recurrence.FrequencyNone, 0, ""), time.UTC, testEnd)
	require.NoError(t, err)
	assert.Nil(t, opt)

	s, err := RRuleString(form("2025-01-01", recurrence.FrequencyNone, 1, ""), time.UTC, testEnd)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestToROption_Invalid(t *testing.T) {
	_, err := ToROption(form("2025-01-01", recurrence.FrequencyDaily, 0, ""), time.UTC, testEnd)
	assert.Error(t, err)

	_, err = ToROption(form("01/01/2025", recurrence.FrequencyDaily, 1, ""), time.UTC, testEnd)
	assert.Error(t, err)

	badClock := form("2025-01-01", recurrence.FrequencyDaily, 1, "")
	badClock.StartTime = "noon"
	_, err = ToROption(badClock, time.UTC, testEnd)
	assert.Error(t, err)

	_, err = ToROption(form("2025-01-01", recurrence.FrequencyDaily, 1, "soon"), time.UTC, testEnd)
	assert.True(t, recurrence.IsInvalidInput(err))
}

func TestRRuleString_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		form recurrence.EventForm
		want recurrence.Repeat
	}{
		{
			name: "daily",
			form: form("2025-01-01", recurrence.FrequencyDaily, 3, "2025-02-01"),
			want: recurrence.Repeat{Type: recurrence.FrequencyDaily, Interval: 3, EndDate: mo.Some("2025-02-01")},
		},
		{
			name: "weekly",
			form: form("2025-01-01", recurrence.FrequencyWeekly, 1, "2025-06-30"),
			want: recurrence.Repeat{Type: recurrence.FrequencyWeekly, Interval: 1, EndDate: mo.Some("2025-06-30")},
		},
		{
			name: "monthly with default end",
			form: form("2025-01-31", recurrence.FrequencyMonthly, 2, ""),
			want: recurrence.Repeat{Type: recurrence.FrequencyMonthly, Interval: 2, EndDate: mo.Some("2025-10-30")},
		},
		{
			name: "yearly capped interval",
			form: form("2000-02-29", recurrence.FrequencyYearly, 20, "2100-12-31"),
			want: recurrence.Repeat{Type: recurrence.FrequencyYearly, Interval: 11, EndDate: mo.Some("2100-12-31")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := RRuleString(tt.form, time.UTC, testEnd)
			require.NoError(t, err)
			assert.Contains(t, value, "FREQ="+strings.ToUpper(string(tt.want.Type)))

			start, err := ruleStart(tt.form, time.UTC)
			require.NoError(t, err)
			got, err := ParseRRule(value, start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRRule(t *testing.T) {
	midnight := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseRRule("FREQ=MONTHLY", midnight)
	require.NoError(t, err)
	assert.Equal(t, recurrence.Repeat{Type: recurrence.FrequencyMonthly, Interval: 1}, got)

	got, err = ParseRRule("FREQ=DAILY;INTERVAL=2;UNTIL=20250301", midnight)
	require.NoError(t, err)
	assert.Equal(t, recurrence.FrequencyDaily, got.Type)
	assert.Equal(t, 2, got.Interval)
	assert.Equal(t, mo.Some("2025-03-01"), got.EndDate)
}

func TestParseRRule_UntilBeforeStartTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		start time.Time
		want  string
	}{
		{
			name:  "until at the start time",
			value: "FREQ=WEEKLY;UNTIL=20251029T090000Z",
			start: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC),
			want:  "2025-10-29",
		},
		{
			name:  "until earlier that day",
			value: "FREQ=WEEKLY;UNTIL=20251029T000000Z",
			start: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC),
			want:  "2025-10-28",
		},
		{
			name:  "date only until read in the start zone",
			value: "FREQ=DAILY;UNTIL=20251029",
			start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.FixedZone("KST", 9*60*60)),
			want:  "2025-10-29",
		},
		{
			name:  "utc until on the previous local day",
			value: "FREQ=DAILY;UNTIL=20251028T150000Z",
			start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.FixedZone("KST", 9*60*60)),
			want:  "2025-10-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRRule(tt.value, tt.start)
			require.NoError(t, err)
			assert.Equal(t, mo.Some(tt.want), got.EndDate)
		})
	}
}

func TestParseRRule_Unsupported(t *testing.T) {
	for _, value := range []string{
		"FREQ=WEEKLY;BYDAY=MO,WE",
		"FREQ=DAILY;COUNT=5",
		"FREQ=HOURLY;INTERVAL=1",
		"FREQ=MONTHLY;BYMONTHDAY=-1",
	} {
		_, err := ParseRRule(value, testEnd)
		assert.True(t, errors.Is(err, ErrUnsupportedRule), "value %s: %v", value, err)
	}

	_, err := ParseRRule("FREQ=SOMETIMES", testEnd)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedRule))
}

func TestFromROption_Nil(t *testing.T) {
	got, err := FromROption(nil, testEnd)
	require.NoError(t, err)
	assert.Equal(t, recurrence.NoRepeat, got)
}

// Outside the two year end-month rule both expanders must produce the same dates
func TestOccurrences_AgreeWithEngine(t *testing.T) {
	forms := []recurrence.EventForm{
		form("2025-01-01", recurrence.FrequencyDaily, 1, "2025-01-31"),
		form("2025-01-01", recurrence.FrequencyDaily, 4, "2025-03-01"),
		form("2025-01-01", recurrence.FrequencyWeekly, 1, "2025-03-01"),
		form("2025-12-24", recurrence.FrequencyWeekly, 3, "2026-04-01"),
		form("2025-01-31", recurrence.FrequencyMonthly, 1, "2025-12-31"),
		form("2025-01-30", recurrence.FrequencyMonthly, 1, "2025-06-30"),
		form("2025-03-15", recurrence.FrequencyMonthly, 5, "2027-01-01"),
		form("2024-02-29", recurrence.FrequencyYearly, 1, "2033-01-01"),
		form("2025-07-04", recurrence.FrequencyYearly, 3, "2040-01-01"),
		form("2025-10-01", recurrence.FrequencyDaily, 1, ""),
		form("2025-07-01", recurrence.FrequencyDaily, 1, "2025-06-01"),
		form("2025-07-01", recurrence.FrequencyMonthly, 1, "2025-07-01"),
	}

	engine := recurrence.NewEngineWithConfig(recurrence.EngineConfig{DefaultEndDate: testEnd})
	defer engine.Close()

	for _, f := range forms {
		expanded, err := engine.Expand(f)
		require.NoError(t, err)
		want := make([]string, 0, len(expanded))
		for _, e := range expanded {
			want = append(want, e.Date)
		}

		occurrences, err := Occurrences(f, time.UTC, testEnd)
		require.NoError(t, err)
		got := make([]string, 0, len(occurrences))
		for _, o := range occurrences {
			got = append(got, recurrence.FormatDate(o))
		}

		assert.Equal(t, want, got, "%s every %d from %s", f.Repeat.Type, f.Repeat.Interval, f.Date)
	}
}

func TestOccurrences_NotRepeating(t *testing.T) {
	got, err := Occurrences(form("2025-05-05", recurrence.FrequencyNone, 1, ""), time.UTC, testEnd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC), got[0])
}

func TestOccurrences_EndBeforeStart(t *testing.T) {
	got, err := Occurrences(form("2025-07-01", recurrence.FrequencyDaily, 1, "2025-06-01"), time.UTC, testEnd)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)}, got)
}
