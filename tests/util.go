package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
	"github.com/trezcool/tutora/core/user"
	"github.com/trezcool/tutora/storage/database"
)

// Logger writes to the test log.
type Logger struct {
	T testing.TB
}

func (l Logger) log(level, msg string, args ...interface{}) {
	l.T.Helper()
	if len(args) > 0 {
		l.T.Logf("[%s] %s %v", level, msg, args)
		return
	}
	l.T.Logf("[%s] %s", level, msg)
}

func (l Logger) Debug(msg string, args ...interface{}) {}
func (l Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args...) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args...) }
func (l Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }
func (l Logger) Fatal(msg string, args ...interface{}) {
	l.T.Helper()
	l.T.Fatal(fmt.Sprint(append([]interface{}{msg, " "}, args...)...))
}

// PrepareDB opens a migrated in-memory database, closed at the end of the test.
func PrepareDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, Logger{T: t}); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, repo user.Repository, name, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateLesson stores a lesson of owner starting at start, or a whole series when frequency > 1.
func CreateLesson(t testing.TB, repo lesson.Repository, owner user.User, student string, start time.Time, frequency int) []lesson.Lesson {
	t.Helper()

	now := core.DBTime(time.Now())
	tmpl := lesson.Lesson{
		OwnerID:         owner.ID,
		StudentName:     student,
		Course:          "Maths",
		LessonNumber:    1,
		StartTime:       core.DBTime(start),
		DurationMinutes: 60,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lessons := lesson.ExpandSeries(tmpl, frequency)
	if err := repo.CreateLessons(context.Background(), lessons); err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lessons
}
