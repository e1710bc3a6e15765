package lesson_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
	"github.com/trezcool/tutora/core/user"
	sqlxrepos "github.com/trezcool/tutora/storage/database/sqlx"
	testutil "github.com/trezcool/tutora/tests"
)

var start = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *lesson.Service
	ada, bob user.User
}

func setUp(t *testing.T) fixture {
	db := testutil.PrepareDB(t)
	users := sqlxrepos.NewUserRepository(db)
	return fixture{
		svc: lesson.NewService(db, sqlxrepos.NewLessonRepository(db)),
		ada: testutil.CreateUser(t, users, "Ada", "ada@test.test", "pwd", true),
		bob: testutil.CreateUser(t, users, "Bob", "bob@test.test", "pwd", true),
	}
}

func newLesson(frequency int) lesson.NewLesson {
	return lesson.NewLesson{
		StudentName:     "Kid A",
		ParentName:      "Mum A",
		Course:          "Maths",
		LessonNumber:    1,
		StartTime:       start,
		DurationMinutes: 60,
		Frequency:       lesson.Frequency(frequency),
	}
}

func numbers(lessons []lesson.Lesson) []int {
	nums := make([]int, 0, len(lessons))
	for _, l := range lessons {
		nums = append(nums, l.LessonNumber)
	}
	return nums
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	fx := setUp(t)

	t.Run("single", func(t *testing.T) {
		nl := newLesson(1)
		nl.LessonNumber = 0
		got, err := fx.svc.Create(ctx, fx.ada.ID, nl)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].LessonNumber)
		assert.Equal(t, 1, got[0].Frequency)
		assert.False(t, got[0].Completed)
		assert.True(t, got[0].StartTime.Equal(start))
		assert.False(t, got[0].CreatedAt.IsZero())
	})

	t.Run("twice a week", func(t *testing.T) {
		got, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(2))
		require.NoError(t, err)
		require.Len(t, got, lesson.SeriesLength)

		assert.True(t, got[0].StartTime.Equal(start))
		assert.True(t, got[1].StartTime.Equal(time.Date(2024, 1, 4, 22, 0, 0, 0, time.UTC)))
		assert.True(t, got[2].StartTime.Equal(time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)))
		for i, l := range got {
			assert.Equal(t, i+1, l.LessonNumber)
			assert.Equal(t, got[0].SeriesID, l.SeriesID)
			assert.Equal(t, 2, l.Frequency)
			assert.Equal(t, "Mum A", l.ParentName)
		}
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	fx := setUp(t)

	series, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(2))
	require.NoError(t, err)
	_, err = fx.svc.Create(ctx, fx.bob.ID, newLesson(1))
	require.NoError(t, err)

	t.Run("inclusive window", func(t *testing.T) {
		got, err := fx.svc.List(ctx, fx.ada.ID, start, series[2].StartTime)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, numbers(got))
	})

	t.Run("empty window", func(t *testing.T) {
		got, err := fx.svc.List(ctx, fx.ada.ID, start.Add(time.Minute), start.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := fx.svc.List(ctx, fx.ada.ID, start.Add(time.Hour), start)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "end", verr.Fields[0].Field)
	})

	t.Run("week", func(t *testing.T) {
		got, err := fx.svc.ListWeek(ctx, fx.ada.ID, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.UTC)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, numbers(got)) // Jan 8 10:00 & Jan 11 22:00
	})

	t.Run("series", func(t *testing.T) {
		sum, err := fx.svc.Series(ctx, fx.ada.ID, series[0].SeriesID)
		require.NoError(t, err)
		assert.Equal(t, lesson.SeriesLength, sum.Count)
		assert.Equal(t, 2, sum.Frequency)
		assert.Zero(t, sum.CompletedCount)
		assert.True(t, sum.FirstStart.Equal(start))
		assert.True(t, sum.LastStart.Equal(series[51].StartTime))
		assert.Contains(t, sum.Rule, "INTERVAL=5040")

		_, err = fx.svc.Series(ctx, fx.bob.ID, series[0].SeriesID)
		assert.Equal(t, lesson.ErrNotFound, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	fx := setUp(t)

	series, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(7))
	require.NoError(t, err)

	name := "Kid Z"
	moved := series[3].StartTime.Add(2 * time.Hour)
	got, err := fx.svc.Update(ctx, fx.ada.ID, series[3].ID, lesson.UpdateLesson{StudentName: &name, StartTime: &moved})
	require.NoError(t, err)
	assert.Equal(t, "Kid Z", got.StudentName)
	assert.True(t, got.StartTime.Equal(moved))
	assert.Equal(t, series[3].SeriesID, got.SeriesID)

	// the rest of the series is untouched
	all, err := fx.svc.List(ctx, fx.ada.ID, start, series[51].StartTime)
	require.NoError(t, err)
	require.Len(t, all, lesson.SeriesLength)
	for _, l := range all {
		if l.ID != series[3].ID {
			assert.Equal(t, "Kid A", l.StudentName)
		}
	}

	_, err = fx.svc.Update(ctx, fx.bob.ID, series[3].ID, lesson.UpdateLesson{StudentName: &name})
	assert.Equal(t, lesson.ErrNotFound, err)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	fx := setUp(t)

	series, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(1))
	require.NoError(t, err)
	weekly, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(7))
	require.NoError(t, err)

	t.Run("other owner", func(t *testing.T) {
		_, err := fx.svc.Delete(ctx, fx.bob.ID, weekly[9].ID, true)
		assert.Equal(t, lesson.ErrNotFound, err)
	})

	t.Run("single occurrence", func(t *testing.T) {
		n, err := fx.svc.Delete(ctx, fx.ada.ID, weekly[20].ID, false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = fx.svc.Get(ctx, fx.ada.ID, weekly[20].ID)
		assert.Equal(t, lesson.ErrNotFound, err)

		sum, err := fx.svc.Series(ctx, fx.ada.ID, weekly[0].SeriesID)
		require.NoError(t, err)
		assert.Equal(t, lesson.SeriesLength-1, sum.Count)
		assert.Empty(t, sum.Rule) // the cadence has a gap
	})

	t.Run("forward from #10", func(t *testing.T) {
		n, err := fx.svc.Delete(ctx, fx.ada.ID, weekly[9].ID, true)
		require.NoError(t, err)
		assert.Equal(t, lesson.SeriesLength-10, n) // #21 was already gone

		sum, err := fx.svc.Series(ctx, fx.ada.ID, weekly[0].SeriesID)
		require.NoError(t, err)
		assert.Equal(t, 9, sum.Count)
		assert.True(t, sum.LastStart.Equal(weekly[8].StartTime))
		assert.Contains(t, sum.Rule, "COUNT=9")

		// other series untouched
		_, err = fx.svc.Get(ctx, fx.ada.ID, series[0].ID)
		assert.NoError(t, err)
	})

	t.Run("already deleted", func(t *testing.T) {
		_, err := fx.svc.Delete(ctx, fx.ada.ID, weekly[9].ID, false)
		assert.Equal(t, lesson.ErrNotFound, err)
	})

	t.Run("whole series from the first occurrence", func(t *testing.T) {
		n, err := fx.svc.Delete(ctx, fx.ada.ID, weekly[0].ID, true)
		require.NoError(t, err)
		assert.Equal(t, 9, n)
	})
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()
	fx := setUp(t)

	series, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(2))
	require.NoError(t, err)
	// same owner, same start times
	other, err := fx.svc.Create(ctx, fx.ada.ID, newLesson(2))
	require.NoError(t, err)

	require.NoError(t, fx.svc.Complete(ctx, fx.ada.ID, series[4].ID))

	inSeries := func(t *testing.T, seriesID string) []lesson.Lesson {
		all, err := fx.svc.List(ctx, fx.ada.ID, start, series[7].StartTime)
		require.NoError(t, err)
		var lessons []lesson.Lesson
		for _, l := range all {
			if l.SeriesID == seriesID {
				lessons = append(lessons, l)
			}
		}
		return lessons
	}

	got := inSeries(t, series[0].SeriesID)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 7, 8, 9}, numbers(got))
	assert.True(t, got[4].Completed)
	assert.False(t, got[5].Completed)

	t.Run("other series untouched", func(t *testing.T) {
		untouched := inSeries(t, other[0].SeriesID)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, numbers(untouched))
		for _, l := range untouched {
			assert.False(t, l.Completed, "#%d", l.LessonNumber)
		}

		sum, err := fx.svc.Series(ctx, fx.ada.ID, other[0].SeriesID)
		require.NoError(t, err)
		assert.Zero(t, sum.CompletedCount)
	})

	t.Run("completing twice changes nothing", func(t *testing.T) {
		require.NoError(t, fx.svc.Complete(ctx, fx.ada.ID, series[4].ID))
		assert.Equal(t, numbers(got), numbers(inSeries(t, series[0].SeriesID)))
	})

	t.Run("summary counts completions", func(t *testing.T) {
		sum, err := fx.svc.Series(ctx, fx.ada.ID, series[0].SeriesID)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.CompletedCount)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, lesson.ErrNotFound, fx.svc.Complete(ctx, fx.bob.ID, series[5].ID))
		assert.Equal(t, lesson.ErrNotFound, fx.svc.Complete(ctx, fx.ada.ID, "8f1c1b7e-5f0c-4d8e-9d3a-2b8e6c4a1f00"))
		assert.Equal(t, lesson.ErrNotFound, fx.svc.Complete(ctx, fx.ada.ID, "nope"))
	})
}
