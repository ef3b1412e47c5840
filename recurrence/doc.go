/*
Package recurrence expands a recurring event form into its concrete occurrences.

A form repeats daily, weekly, monthly or yearly with a single interval and an
optional inclusive end date:

	events, err := recurrence.Expand(recurrence.EventForm{
		Title: "Standup",
		Date:  "2025-10-01",
		Repeat: recurrence.Repeat{
			Type:     recurrence.FrequencyWeekly,
			Interval: 1,
		},
	})

The first element is always the form itself. Later elements are copies with
only the date replaced. Repeats without an end date stop at the engine's
default end date (DefaultEndDate unless configured otherwise).

# Calendar rules

  - Intervals are capped at MaxInterval; yearly intervals above the cap become 11.
  - Monthly repeats keep the start's day of month and skip months that lack it,
    so a series started on the 31st only lands on 31-day months.
  - Yearly repeats keep the start's month and day, so a series started on
    February 29 only lands on leap years.
  - A yearly repeat with an interval of 2 takes the end date's month in the end
    date's year.

Use NewEngine or NewEngineWithConfig for a configurable engine with an
expansion cache and a logger.
*/
package recurrence
