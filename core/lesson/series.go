package lesson

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SeriesLength is the number of occurrences generated for a recurring lesson.
	SeriesLength = 52
	// MaxFrequency is one lesson a minute; above that occurrences would share a start time.
	MaxFrequency = 7 * 24 * 60

	weekMs = int64(7 * 24 * time.Hour / time.Millisecond)
)

// newID is mockable
var newID = func() string { return uuid.New().String() }

// Offset returns how far the i-th occurrence of a series with this frequency starts after the first one.
// Computed in whole milliseconds so that no rounding error accumulates along the series.
func Offset(i, frequency int) time.Duration {
	if frequency < 1 {
		frequency = 1
	}
	return time.Duration(int64(i)*weekMs/int64(frequency)) * time.Millisecond
}

// ExpandSeries turns the lesson template into the occurrences to create.
//
// With a frequency <= 1 or above MaxFrequency the template becomes a single lesson (with its own series).
// Otherwise SeriesLength occurrences are generated, i*7/frequency days apart,
// with consecutive lesson numbers starting at the template's.
// All occurrences share a new series ID.
func ExpandSeries(tmpl Lesson, frequency int) []Lesson {
	seriesID := newID()

	if frequency <= 1 || frequency > MaxFrequency {
		l := tmpl
		l.ID = newID()
		l.SeriesID = seriesID
		l.Frequency = 1
		return []Lesson{l}
	}

	lessons := make([]Lesson, 0, SeriesLength)
	for i := 0; i < SeriesLength; i++ {
		l := tmpl
		l.ID = newID()
		l.SeriesID = seriesID
		l.Frequency = frequency
		l.LessonNumber = tmpl.LessonNumber + i
		l.StartTime = tmpl.StartTime.Add(Offset(i, frequency))
		lessons = append(lessons, l)
	}
	return lessons
}
