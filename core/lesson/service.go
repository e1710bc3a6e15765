package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
)

var (
	// errors
	ErrNotFound = errors.New("lesson not found")
)

type (
	// Repository persists lessons. Every method is scoped to an owner and
	// joins the service transaction when an executor is passed.
	Repository interface {
		// CreateLessons inserts all lessons at once: either all of them are stored or none.
		CreateLessons(ctx context.Context, lessons []Lesson, exec ...core.DBExecutor) error
		// QueryLessons returns the lessons matching filter, ordered by start time.
		QueryLessons(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Lesson, error)
		GetLesson(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLessons(ctx context.Context, filter DeleteFilter, exec ...core.DBExecutor) (int, error)
		// MarkCompleted flags the lesson as completed and returns the number of affected rows.
		MarkCompleted(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (int, error)
		// ShiftLessonNumbers adds delta to the lesson number of every occurrence
		// of target's series starting strictly after target.
		ShiftLessonNumbers(ctx context.Context, target Lesson, delta int, exec ...core.DBExecutor) (int, error)
	}

	// Service schedules lessons and their series.
	Service struct {
		db      core.DB
		repo    Repository
		nowFunc func() time.Time // mockable
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		nowFunc: time.Now,
	}
}

func (svc *Service) now() time.Time {
	return core.DBTime(svc.nowFunc())
}

// Create stores a new lesson, or the whole series when nl.Frequency > 1.
// It returns the stored occurrences ordered by start time.
func (svc *Service) Create(ctx context.Context, ownerID string, nl NewLesson) ([]Lesson, error) {
	now := svc.now()
	tmpl := Lesson{
		OwnerID:         ownerID,
		StudentName:     nl.StudentName,
		ParentName:      nl.ParentName,
		StudentContact:  nl.StudentContact,
		ParentContact:   nl.ParentContact,
		Course:          nl.Course,
		Description:     nl.Description,
		LessonNumber:    nl.LessonNumber,
		StartTime:       core.DBTime(nl.StartTime),
		DurationMinutes: nl.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if tmpl.LessonNumber < 1 {
		tmpl.LessonNumber = 1
	}

	lessons := ExpandSeries(tmpl, nl.Frequency.Value())
	if err := svc.repo.CreateLessons(ctx, lessons); err != nil {
		return nil, errors.Wrap(err, "creating lessons")
	}
	if len(lessons) == 1 {
		return lessons, nil
	}

	series, err := svc.repo.QueryLessons(ctx, QueryFilter{OwnerID: ownerID, SeriesID: lessons[0].SeriesID})
	return series, errors.Wrap(err, "querying series")
}

// List returns the owner's lessons starting within [from, to], ordered by start time.
func (svc *Service) List(ctx context.Context, ownerID string, from, to time.Time) ([]Lesson, error) {
	if from.After(to) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must not be before start"})
	}
	lessons, err := svc.repo.QueryLessons(ctx, QueryFilter{OwnerID: ownerID, From: from, To: to})
	return lessons, errors.Wrap(err, "querying lessons")
}

// ListWeek returns the owner's lessons of the Monday-to-Sunday week containing day in loc.
func (svc *Service) ListWeek(ctx context.Context, ownerID string, day time.Time, loc *time.Location) ([]Lesson, error) {
	from, to := WeekWindow(day, loc)
	return svc.List(ctx, ownerID, from, to)
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, ownerID, id)
}

// Series summarizes the remaining occurrences of a series.
func (svc *Service) Series(ctx context.Context, ownerID, seriesID string) (SeriesSummary, error) {
	lessons, err := svc.repo.QueryLessons(ctx, QueryFilter{OwnerID: ownerID, SeriesID: seriesID})
	if err != nil {
		return SeriesSummary{}, errors.Wrap(err, "querying series")
	}
	if len(lessons) == 0 {
		return SeriesSummary{}, ErrNotFound
	}

	first, last := lessons[0], lessons[len(lessons)-1]
	summary := SeriesSummary{
		SeriesID:   seriesID,
		Frequency:  first.Frequency,
		Count:      len(lessons),
		FirstStart: first.StartTime,
		LastStart:  last.StartTime,
		Rule:       SeriesRule(lessons),
	}
	for _, l := range lessons {
		if l.Completed {
			summary.CompletedCount++
		}
	}
	return summary, nil
}

// Update modifies exactly one occurrence; the rest of its series is left untouched.
func (svc *Service) Update(ctx context.Context, ownerID, id string, ul UpdateLesson) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, ownerID, id)
	if err != nil {
		return Lesson{}, err
	}
	l = ul.apply(l)
	l.UpdatedAt = svc.now()
	return svc.repo.UpdateLesson(ctx, l)
}

// Delete removes one occurrence, or with wholeSeries, the occurrence and every later one of its series.
// Earlier occurrences are always kept. It returns the number of deleted lessons.
func (svc *Service) Delete(ctx context.Context, ownerID, id string, wholeSeries bool) (int, error) {
	target, err := svc.repo.GetLesson(ctx, ownerID, id)
	if err != nil {
		return 0, err
	}

	filter := DeleteFilter{OwnerID: ownerID, ID: target.ID}
	if wholeSeries {
		filter = DeleteFilter{OwnerID: ownerID, SeriesID: target.SeriesID, From: target.StartTime}
	}
	n, err := svc.repo.DeleteLessons(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "deleting lessons")
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// Complete marks the occurrence as completed and bumps the lesson number of
// the later occurrences of its series. Completing a completed lesson does nothing.
func (svc *Service) Complete(ctx context.Context, ownerID, id string) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		target, err := svc.repo.GetLesson(ctx, ownerID, id, tx)
		if err != nil {
			return err
		}
		if target.Completed {
			return nil
		}

		n, err := svc.repo.MarkCompleted(ctx, ownerID, id, tx)
		if err != nil {
			return errors.Wrap(err, "marking lesson completed")
		}
		if n == 0 {
			return ErrNotFound
		}

		_, err = svc.repo.ShiftLessonNumbers(ctx, target, 1, tx)
		return errors.Wrap(err, "renumbering series")
	})
}
