package agendasvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
	"github.com/trezcool/tutora/core/user"
	emailsvc "github.com/trezcool/tutora/services/email"
	sqlxrepos "github.com/trezcool/tutora/storage/database/sqlx"
	testutil "github.com/trezcool/tutora/tests"
)

func TestService_SendDigests(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Agenda.Timezone = "Europe/Paris"
	logger := testutil.Logger{T: t}

	db := testutil.PrepareDB(t)
	userRepo := sqlxrepos.NewUserRepository(db)
	lessonRepo := sqlxrepos.NewLessonRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	userSvc := user.NewService(userRepo, mailSvc, conf)
	lessonSvc := lesson.NewService(db, lessonRepo)

	ada := testutil.CreateUser(t, userRepo, "Ada", "ada@test.test", "pwd", true)
	bob := testutil.CreateUser(t, userRepo, "Bob", "bob@test.test", "pwd", true)
	idle := testutil.CreateUser(t, userRepo, "Idle", "idle@test.test", "pwd", true)
	gone := testutil.CreateUser(t, userRepo, "Gone", "gone@test.test", "pwd", false)
	_ = idle

	// 2024-01-02 in Paris: 2024-01-01T23:00Z to 2024-01-02T23:00Z
	testutil.CreateLesson(t, lessonRepo, ada, "Kid A", time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC), 1) // 00:30 Paris
	testutil.CreateLesson(t, lessonRepo, ada, "Kid B", time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), 1)
	testutil.CreateLesson(t, lessonRepo, ada, "Kid C", time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC), 1) // next day in Paris
	testutil.CreateLesson(t, lessonRepo, bob, "Kid D", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), 1)
	testutil.CreateLesson(t, lessonRepo, gone, "Kid E", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), 1)

	svc := NewService(conf, userSvc, lessonSvc, mailSvc, logger)
	emailsvc.ResetSentMessages()

	n, err := svc.SendDigests(ctx, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, emailsvc.SentMessages, 2)

	var adaMsg core.EmailMessage
	for _, m := range emailsvc.SentMessages {
		if m.To[0].Address == ada.Email {
			adaMsg = m
		}
	}
	assert.Equal(t, "Your lessons for Tuesday, January 2", adaMsg.Subject)
	assert.Contains(t, adaMsg.TextContent, "Hi Ada,")
	assert.Contains(t, adaMsg.TextContent, "00:30 (60 min) Maths #1 with Kid A")
	assert.Contains(t, adaMsg.TextContent, "17:00 (60 min) Maths #1 with Kid B")
	assert.NotContains(t, adaMsg.TextContent, "Kid C")
	assert.Contains(t, adaMsg.HTMLContent, "Kid B")
}

func TestService_Start(t *testing.T) {
	conf := core.NewTestConfig()
	logger := testutil.Logger{T: t}

	conf.Agenda.Spec = "not a spec"
	svc := NewService(conf, nil, nil, nil, logger)
	assert.Error(t, svc.Start())

	conf.Agenda.Spec = "@daily"
	svc = NewService(conf, nil, nil, nil, logger)
	require.NoError(t, svc.Start())
	assert.Len(t, svc.cron.Entries(), 1)
	<-svc.Stop().Done()
}
