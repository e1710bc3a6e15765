package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutora/core/lesson"
	testutil "github.com/trezcool/tutora/tests"
)

var monday = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func windowPath(start, end string) string {
	v := make(url.Values)
	if start != "" {
		v.Set("start", start)
	}
	if end != "" {
		v.Set("end", end)
	}
	return "/api/lessons?" + v.Encode()
}

func Test_lessonApi_create(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	token := env.getToken(t, ada)

	tests := []struct {
		httpTest
		wantLen int
	}{
		{httpTest: httpTest{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}},
		{
			httpTest: httpTest{
				name: "missing fields", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
				wantData: []byte(`{
					"student_name": "this field is required",
					"course": "this field is required",
					"start_time": "this field is required",
					"duration_minutes": "this field is required"
				}`),
			},
		},
		{
			httpTest: httpTest{
				name: "single", token: token, wantCode: http.StatusCreated,
				body: []byte(`{"student_name": "Kid", "course": "Maths", "start_time": "2024-01-01T10:00:00Z", "duration_minutes": 60}`),
			},
			wantLen: 1,
		},
		{
			httpTest: httpTest{
				name: "bad frequency makes a single lesson", token: token, wantCode: http.StatusCreated,
				body: []byte(`{"student_name": "Kid", "course": "Maths", "start_time": "2024-01-01T10:00:00Z", "duration_minutes": 60, "frequency": "often"}`),
			},
			wantLen: 1,
		},
		{
			httpTest: httpTest{
				name: "twice a week", token: token, wantCode: http.StatusCreated,
				body: []byte(`{"student_name": "Kid", "course": "Maths", "start_time": "2024-01-01T10:00:00Z", "duration_minutes": 60, "frequency": 2}`),
			},
			wantLen: lesson.SeriesLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/lessons"
			rec := env.do(tt.httpTest)
			checkCodeAndData(t, tt.httpTest, rec)

			if tt.wantCode == http.StatusCreated {
				var got []lesson.Lesson
				decode(t, rec, &got)
				require.Len(t, got, tt.wantLen)
				assert.True(t, got[0].StartTime.Equal(monday))
				assert.Equal(t, 1, got[0].LessonNumber)
				if tt.wantLen > 1 {
					assert.True(t, got[1].StartTime.Equal(time.Date(2024, 1, 4, 22, 0, 0, 0, time.UTC)))
					assert.Equal(t, lesson.SeriesLength, got[len(got)-1].LessonNumber)
					assert.Equal(t, got[0].SeriesID, got[len(got)-1].SeriesID)
				}
			}
		})
	}
}

func Test_lessonApi_query(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	token := env.getToken(t, ada)

	l1 := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 1)[0]
	l2 := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid B", monday.Add(48*time.Hour), 1)[0]
	l3 := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid C", monday.Add(7*24*time.Hour), 1)[0]
	testutil.CreateLesson(t, env.lessonRepo, bob, "Kid D", monday.Add(time.Hour), 1)

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", path: windowPath("", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "window required", path: windowPath("", ""), token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start": "start is a required field", "end": "end is a required field"}`),
		},
		{
			name: "invalid start", path: windowPath("yesterday", monday.Format(time.RFC3339)), token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start": "start must be an RFC 3339 date-time"}`),
		},
		{
			name: "start after end", path: windowPath(l3.StartTime.Format(time.RFC3339), monday.Format(time.RFC3339)), token: token,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"end": "end must not be before start"}`),
		},
		{
			name: "inclusive bounds", path: windowPath(l1.StartTime.Format(time.RFC3339), l3.StartTime.Format(time.RFC3339)), token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []lesson.Lesson{l1, l2, l3}),
		},
		{
			name: "other time zone", path: windowPath(monday.In(paris).Format(time.RFC3339), l2.StartTime.In(paris).Format(time.RFC3339)), token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []lesson.Lesson{l1, l2}),
		},
		{
			name: "empty", path: windowPath("2030-01-01T00:00:00Z", "2030-02-01T00:00:00Z"), token: token,
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_lessonApi_week(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	token := env.getToken(t, ada)

	// Sunday 23:30 in Paris is still in the week of Monday 1st
	sunday := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", time.Date(2024, 1, 7, 22, 30, 0, 0, time.UTC), 1)[0]
	wed := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid B", time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 1)[0]
	next := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid C", time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), 1)[0]

	tests := []httpTest{
		{
			name: "paris", path: "/api/lessons/week?date=2024-01-03&tz=Europe/Paris", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []lesson.Lesson{wed, sunday}),
		},
		{
			name: "utc", path: "/api/lessons/week?date=2024-01-08T12:00:00Z", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []lesson.Lesson{next}),
		},
		{
			name: "invalid tz", path: "/api/lessons/week?tz=Mars/Olympus", token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tz": "unknown time zone"}`),
		},
		{
			name: "invalid date", path: "/api/lessons/week?date=soon", token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date": "date must be a date or an RFC 3339 date-time"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_lessonApi_retrieve(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	l := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 1)[0]
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "auth required", path: "/api/lessons/" + l.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "other owner", path: "/api/lessons/" + l.ID, token: env.getToken(t, bob), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown", path: "/api/lessons/nope", token: env.getToken(t, ada), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "found", path: "/api/lessons/" + l.ID, token: env.getToken(t, ada), wantCode: http.StatusOK, wantData: marchallObj(t, l)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_lessonApi_update(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	series := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 2)
	target := series[3]
	path := "/api/lessons/" + target.ID

	tests := []httpTest{
		{
			name: "other owner", path: path, token: env.getToken(t, bob), body: []byte(`{"course": "Physics"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "blank student", path: path, token: env.getToken(t, ada), body: []byte(`{"student_name": "  "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_name": "this field may not be blank"}`),
		},
		{
			name: "too short", path: path, token: env.getToken(t, ada), body: []byte(`{"duration_minutes": -5}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"duration_minutes": "duration_minutes must be 1 or greater"}`),
		},
		{
			name: "updated", path: path, token: env.getToken(t, ada),
			body:     []byte(`{"course": " Physics ", "start_time": "2024-01-11T15:00:00+01:00", "series_id": "x", "frequency": 7, "completed": true}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			rec := env.do(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var got lesson.Lesson
				decode(t, rec, &got)
				assert.Equal(t, target.ID, got.ID)
				assert.Equal(t, target.SeriesID, got.SeriesID)
				assert.Equal(t, 2, got.Frequency)
				assert.Equal(t, "Physics", got.Course)
				assert.Equal(t, "Kid A", got.StudentName)
				assert.False(t, got.Completed)
				assert.True(t, got.StartTime.Equal(time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)))

				// the rest of the series is untouched
				other, err := env.lessonRepo.GetLesson(context.Background(), ada.ID, series[4].ID)
				require.NoError(t, err)
				assert.Equal(t, "Maths", other.Course)
			}
		})
	}
}

func Test_lessonApi_destroy(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	series := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 2)
	token := env.getToken(t, ada)

	remaining := func() int {
		lessons, err := env.lessonRepo.QueryLessons(context.Background(), lesson.QueryFilter{OwnerID: ada.ID, SeriesID: series[0].SeriesID})
		require.NoError(t, err)
		return len(lessons)
	}

	tests := []struct {
		httpTest
		wantRemaining int
	}{
		{
			httpTest: httpTest{
				name: "other owner", path: "/api/lessons/" + series[0].ID, token: env.getToken(t, bob),
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			wantRemaining: lesson.SeriesLength,
		},
		{
			httpTest: httpTest{
				name: "invalid series flag", path: "/api/lessons/" + series[9].ID + "?series=yes", token: token,
				wantCode: http.StatusBadRequest, wantData: []byte(`{"series": "series must be a boolean"}`),
			},
			wantRemaining: lesson.SeriesLength,
		},
		{
			httpTest:      httpTest{name: "single occurrence", path: "/api/lessons/" + series[20].ID, token: token, wantCode: http.StatusNoContent},
			wantRemaining: lesson.SeriesLength - 1,
		},
		{
			httpTest:      httpTest{name: "series=false", path: "/api/lessons/" + series[21].ID + "?series=false", token: token, wantCode: http.StatusNoContent},
			wantRemaining: lesson.SeriesLength - 2,
		},
		{
			httpTest:      httpTest{name: "forward from #10", path: "/api/lessons/" + series[9].ID + "?series=true", token: token, wantCode: http.StatusNoContent},
			wantRemaining: 9,
		},
		{
			httpTest: httpTest{
				name: "already deleted", path: "/api/lessons/" + series[9].ID + "?series=true", token: token,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			wantRemaining: 9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodDelete
			checkCodeAndData(t, tt.httpTest, env.do(tt.httpTest))
			assert.Equal(t, tt.wantRemaining, remaining())
		})
	}
}

func Test_lessonApi_complete(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	series := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 7)
	token := env.getToken(t, ada)

	numbers := func() []int {
		lessons, err := env.lessonRepo.QueryLessons(context.Background(), lesson.QueryFilter{OwnerID: ada.ID, SeriesID: series[0].SeriesID})
		require.NoError(t, err)
		nums := make([]int, 0, 4)
		for _, l := range lessons[:4] {
			nums = append(nums, l.LessonNumber)
		}
		return nums
	}

	tests := []struct {
		httpTest
		wantNumbers []int
	}{
		{
			httpTest: httpTest{
				name: "other owner", path: "/api/lessons/" + series[1].ID + "/complete", token: env.getToken(t, bob),
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			wantNumbers: []int{1, 2, 3, 4},
		},
		{
			httpTest: httpTest{
				name: "unknown", path: "/api/lessons/nope/complete", token: token,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			wantNumbers: []int{1, 2, 3, 4},
		},
		{
			httpTest:    httpTest{name: "completed", path: "/api/lessons/" + series[1].ID + "/complete", token: token, wantCode: http.StatusNoContent},
			wantNumbers: []int{1, 2, 4, 5},
		},
		{
			httpTest:    httpTest{name: "twice", path: "/api/lessons/" + series[1].ID + "/complete", token: token, wantCode: http.StatusNoContent},
			wantNumbers: []int{1, 2, 4, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			checkCodeAndData(t, tt.httpTest, env.do(tt.httpTest))
			assert.Equal(t, tt.wantNumbers, numbers())
		})
	}

	l, err := env.lessonRepo.GetLesson(context.Background(), ada.ID, series[1].ID)
	require.NoError(t, err)
	assert.True(t, l.Completed)
}

func Test_lessonApi_series(t *testing.T) {
	env := setUp(t)
	ada := testutil.CreateUser(t, env.userRepo, "Ada", "ada@test.test", goodPwd, true)
	bob := testutil.CreateUser(t, env.userRepo, "Bob", "bob@test.test", goodPwd, true)
	series := testutil.CreateLesson(t, env.lessonRepo, ada, "Kid A", monday, 2)
	path := "/api/lessons/series/" + series[0].SeriesID

	t.Run("other owner", func(t *testing.T) {
		tt := httpTest{path: path, token: env.getToken(t, bob), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, env.do(tt))
	})

	t.Run("summary", func(t *testing.T) {
		rec := env.do(httpTest{path: path, token: env.getToken(t, ada)})
		require.Equal(t, http.StatusOK, rec.Code)

		var got lesson.SeriesSummary
		decode(t, rec, &got)
		assert.Equal(t, series[0].SeriesID, got.SeriesID)
		assert.Equal(t, 2, got.Frequency)
		assert.Equal(t, lesson.SeriesLength, got.Count)
		assert.Equal(t, 0, got.CompletedCount)
		assert.True(t, got.FirstStart.Equal(monday))
		assert.True(t, got.LastStart.Equal(series[len(series)-1].StartTime))
		assert.Contains(t, got.Rule, "COUNT=52")
	})
}
