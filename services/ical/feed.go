package icalsvc

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/trezcool/tutora/core/lesson"
)

// Feed renders lessons as an iCalendar publication.
type Feed struct {
	ProductID string
	UIDSuffix string
}

func NewFeed(appName string) Feed {
	return Feed{
		ProductID: fmt.Sprintf("-//%s//Lessons//EN", appName),
		UIDSuffix: appName,
	}
}

// Serialize returns the calendar of lessons, one event per occurrence.
func (f Feed) Serialize(lessons []lesson.Lesson, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(f.ProductID)

	for _, l := range lessons {
		ev := cal.AddEvent(l.ID + "@" + f.UIDSuffix)
		ev.SetCreatedTime(l.CreatedAt)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(l.StartTime)
		ev.SetEndAt(l.EndTime())
		ev.SetSummary(summary(l))
		if d := description(l); d != "" {
			ev.SetDescription(d)
		}
	}
	return cal.Serialize()
}

func summary(l lesson.Lesson) string {
	s := fmt.Sprintf("%s #%d - %s", l.Course, l.LessonNumber, l.StudentName)
	if l.Completed {
		return "[done] " + s
	}
	return s
}

func description(l lesson.Lesson) string {
	var lines []string
	if l.Description != "" {
		lines = append(lines, l.Description)
	}
	if l.StudentContact != "" {
		lines = append(lines, "Student: "+l.StudentContact)
	}
	if l.ParentName != "" || l.ParentContact != "" {
		lines = append(lines, strings.TrimSpace("Parent: "+l.ParentName+" "+l.ParentContact))
	}
	return strings.Join(lines, "\n")
}
