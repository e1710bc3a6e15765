package lesson

import (
	"time"

	"github.com/teambition/rrule-go"
)

const (
	weekMinutes = 7 * 24 * 60
	weekSeconds = weekMinutes * 60
)

// SeriesRule describes the remaining occurrences of a series, as long as they still follow
// its cadence from the first one. Empty once an occurrence was removed or moved.
func SeriesRule(lessons []Lesson) string {
	if len(lessons) < 2 {
		return ""
	}
	first := lessons[0]
	for k, l := range lessons {
		if !l.StartTime.Equal(first.StartTime.Add(Offset(k, first.Frequency))) {
			return ""
		}
	}
	return Rule(first.StartTime, first.Frequency, len(lessons))
}

// Rule describes the cadence of a series as an RFC 5545 recurrence rule, starting at first.
// It is empty for one-off lessons and when the interval is not a whole number of seconds.
func Rule(first time.Time, frequency, count int) string {
	if frequency < 1 || count < 2 {
		return ""
	}

	opt := rrule.ROption{Count: count, Dtstart: first.UTC().Truncate(time.Second)}
	switch {
	case frequency == 1:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 1
	case weekMinutes%frequency == 0:
		opt.Freq = rrule.MINUTELY
		opt.Interval = weekMinutes / frequency
	case weekSeconds%frequency == 0:
		opt.Freq = rrule.SECONDLY
		opt.Interval = weekSeconds / frequency
	default:
		return ""
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return ""
	}
	return r.String()
}
