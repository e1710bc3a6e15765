package lesson

import (
	"time"

	"github.com/jinzhu/now"
)

// WeekWindow returns the calendar week containing t in loc: Monday 00:00 through Sunday 23:59:59.999999999.
func WeekWindow(t time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	cal := &now.Config{WeekStartDay: time.Monday, TimeLocation: loc}
	n := cal.With(t.In(loc))
	return n.BeginningOfWeek(), n.EndOfWeek()
}

// DayWindow returns the calendar day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	cal := &now.Config{WeekStartDay: time.Monday, TimeLocation: loc}
	n := cal.With(t.In(loc))
	return n.BeginningOfDay(), n.EndOfDay()
}
