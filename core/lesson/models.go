package lesson

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutora/core"
)

// Lesson is one occurrence of a series. A one-off lesson is a series of one.
type Lesson struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"-"`
	SeriesID        string    `json:"series_id"`
	StudentName     string    `json:"student_name"`
	ParentName      string    `json:"parent_name"`
	StudentContact  string    `json:"student_contact"`
	ParentContact   string    `json:"parent_contact"`
	Course          string    `json:"course"`
	Description     string    `json:"description"`
	LessonNumber    int       `json:"lesson_number"`
	StartTime       time.Time `json:"start_time"` // UTC
	DurationMinutes int       `json:"duration_minutes"`
	Frequency       int       `json:"frequency"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (l Lesson) EndTime() time.Time {
	return l.StartTime.Add(time.Duration(l.DurationMinutes) * time.Minute)
}

// Frequency is the number of occurrences per week requested for a new series.
// Decoding never fails: anything that is not an integer in [1, MaxFrequency] becomes 1.
type Frequency int

func (f *Frequency) UnmarshalJSON(data []byte) error {
	*f = parseFrequency(data)
	return nil
}

func parseFrequency(data []byte) Frequency {
	raw := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if raw == "" || raw == "null" {
		return 1
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 1 || n > MaxFrequency {
		return 1
	}
	return Frequency(n)
}

// Value is the effective frequency, within [1, MaxFrequency].
func (f Frequency) Value() int {
	if f < 1 || f > MaxFrequency {
		return 1
	}
	return int(f)
}

// NewLesson contains information needed to create a lesson, or a whole series when Frequency > 1.
type NewLesson struct {
	StudentName     string    `json:"student_name" validate:"required,max=128"`
	ParentName      string    `json:"parent_name" validate:"max=128"`
	StudentContact  string    `json:"student_contact" validate:"max=128"`
	ParentContact   string    `json:"parent_contact" validate:"max=128"`
	Course          string    `json:"course" validate:"required,max=128"`
	Description     string    `json:"description"`
	LessonNumber    int       `json:"lesson_number" validate:"min=0"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=1440"`
	Frequency       Frequency `json:"frequency"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.StudentName = core.CleanString(nl.StudentName)
	nl.ParentName = core.CleanString(nl.ParentName)
	nl.StudentContact = core.CleanString(nl.StudentContact)
	nl.ParentContact = core.CleanString(nl.ParentContact)
	nl.Course = core.CleanString(nl.Course)
	nl.Description = strings.TrimSpace(nl.Description)
	if nl.LessonNumber == 0 {
		nl.LessonNumber = 1
	}
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify one occurrence.
// The series, the frequency and the ID of an occurrence cannot be changed.
// Completion goes through Service.Complete only, so it is never undone.
type UpdateLesson struct {
	StudentName     *string    `json:"student_name" validate:"omitempty,max=128"`
	ParentName      *string    `json:"parent_name" validate:"omitempty,max=128"`
	StudentContact  *string    `json:"student_contact" validate:"omitempty,max=128"`
	ParentContact   *string    `json:"parent_contact" validate:"omitempty,max=128"`
	Course          *string    `json:"course" validate:"omitempty,max=128"`
	Description     *string    `json:"description"`
	LessonNumber    *int       `json:"lesson_number" validate:"omitempty,min=1"`
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	var flds []core.FieldError
	clean := func(s *string, field string, required bool) {
		if s == nil {
			return
		}
		*s = core.CleanString(*s)
		if required && *s == "" {
			flds = append(flds, core.FieldError{Field: field, Error: "this field may not be blank"})
		}
	}
	clean(ul.StudentName, "student_name", true)
	clean(ul.ParentName, "parent_name", false)
	clean(ul.StudentContact, "student_contact", false)
	clean(ul.ParentContact, "parent_contact", false)
	clean(ul.Course, "course", true)
	if ul.StartTime != nil && ul.StartTime.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_time", Error: "this field may not be blank"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return validate.Struct(ul)
}

// apply copies the provided fields onto l.
func (ul UpdateLesson) apply(l Lesson) Lesson {
	if ul.StudentName != nil {
		l.StudentName = *ul.StudentName
	}
	if ul.ParentName != nil {
		l.ParentName = *ul.ParentName
	}
	if ul.StudentContact != nil {
		l.StudentContact = *ul.StudentContact
	}
	if ul.ParentContact != nil {
		l.ParentContact = *ul.ParentContact
	}
	if ul.Course != nil {
		l.Course = *ul.Course
	}
	if ul.Description != nil {
		l.Description = strings.TrimSpace(*ul.Description)
	}
	if ul.LessonNumber != nil {
		l.LessonNumber = *ul.LessonNumber
	}
	if ul.StartTime != nil {
		l.StartTime = core.DBTime(*ul.StartTime)
	}
	if ul.DurationMinutes != nil {
		l.DurationMinutes = *ul.DurationMinutes
	}
	return l
}

// QueryFilter applies AND operation on the provided fields. OwnerID is mandatory.
type QueryFilter struct {
	OwnerID   string
	SeriesID  string
	From      time.Time // start_time >= From
	To        time.Time // start_time <= To
	Completed *bool
}

// DeleteFilter selects the occurrences removed by a delete. OwnerID is mandatory.
type DeleteFilter struct {
	OwnerID  string
	ID       string
	SeriesID string
	From     time.Time // start_time >= From
}

// SeriesSummary describes a series as a whole.
type SeriesSummary struct {
	SeriesID       string    `json:"series_id"`
	Frequency      int       `json:"frequency"`
	Count          int       `json:"count"`
	CompletedCount int       `json:"completed_count"`
	FirstStart     time.Time `json:"first_start"`
	LastStart      time.Time `json:"last_start"`
	Rule           string    `json:"rule"`
}

// ListRequest is the window queried by the calendar.
type ListRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

func (lr ListRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(lr); err != nil {
		return err
	}
	if lr.Start.After(lr.End) {
		return core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must not be before start"})
	}
	return nil
}
