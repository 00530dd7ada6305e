package utils

import "time"

const (
	HeaderDateLayout = "02 Jan 2006 · Mon"
	DueDateLayout    = "02-01-2006"
	dueOnLayout      = "2006-01-02"
)

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ParseDueOn parses the API's YYYY-MM-DD due date. Empty or malformed input yields the zero time.
func ParseDueOn(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dueOnLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
