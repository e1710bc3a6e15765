package agendasvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
	"github.com/trezcool/tutora/core/user"
)

const digestTimeout = 5 * time.Minute

type (
	userLister interface {
		QueryActive(ctx context.Context) ([]user.User, error)
	}

	lessonLister interface {
		List(ctx context.Context, ownerID string, from, to time.Time) ([]lesson.Lesson, error)
	}

	// Service mails every tutor the agenda of the next day.
	Service struct {
		users   userLister
		lessons lessonLister
		mailSvc core.EmailService
		logger  core.Logger
		spec    string
		loc     *time.Location
		cron    *cron.Cron
		nowFunc func() time.Time // mockable
	}

	digestLesson struct {
		Time            string
		DurationMinutes int
		Course          string
		LessonNumber    int
		StudentName     string
		Description     string
	}

	digestData struct {
		Name    string
		Day     string
		Lessons []digestLesson
	}
)

func NewService(conf *core.Config, users userLister, lessons lessonLister, mailSvc core.EmailService, logger core.Logger) *Service {
	loc := conf.Agenda.Location()
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		users:   users,
		lessons: lessons,
		mailSvc: mailSvc,
		logger:  logger,
		spec:    conf.Agenda.Spec,
		loc:     loc,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
			cron.WithLogger(cronLogger{logger}),
		),
		nowFunc: time.Now,
	}
}

// Start schedules the digest of the next day.
func (svc *Service) Start() error {
	_, err := svc.cron.AddFunc(svc.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()

		tomorrow := svc.nowFunc().In(svc.loc).AddDate(0, 0, 1)
		n, err := svc.SendDigests(ctx, tomorrow)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("sending agenda digests: %v", err), err)
			return
		}
		svc.logger.Info(fmt.Sprintf("agenda digests sent: %d", n))
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling agenda digest %q", svc.spec)
	}
	svc.cron.Start()
	return nil
}

// Stop stops scheduling digests. The returned context is done once the running digest is over.
func (svc *Service) Stop() context.Context {
	return svc.cron.Stop()
}

// SendDigests mails each active tutor their lessons of day, skipping tutors without lessons.
// It returns the number of mails sent.
func (svc *Service) SendDigests(ctx context.Context, day time.Time) (int, error) {
	users, err := svc.users.QueryActive(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying users")
	}

	from, to := lesson.DayWindow(day, svc.loc)
	msgs := make([]*core.EmailMessage, 0, len(users))
	for _, usr := range users {
		lessons, err := svc.lessons.List(ctx, usr.ID, from, to)
		if err != nil {
			return 0, errors.Wrapf(err, "listing lessons of %s", usr.ID)
		}
		if len(lessons) == 0 {
			continue
		}
		msgs = append(msgs, svc.digest(usr, from, lessons))
	}

	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}

func (svc *Service) digest(usr user.User, day time.Time, lessons []lesson.Lesson) *core.EmailMessage {
	data := digestData{
		Name:    usr.DisplayName(),
		Day:     day.Format("Monday, January 2"),
		Lessons: make([]digestLesson, 0, len(lessons)),
	}
	for _, l := range lessons {
		data.Lessons = append(data.Lessons, digestLesson{
			Time:            l.StartTime.In(svc.loc).Format("15:04"),
			DurationMinutes: l.DurationMinutes,
			Course:          l.Course,
			LessonNumber:    l.LessonNumber,
			StudentName:     l.StudentName,
			Description:     l.Description,
		})
	}

	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your lessons for " + data.Day,
		TemplateName: "agenda_digest",
		TemplateData: data,
	}
}

// cronLogger sends cron logs to the app logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvToMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), err, kvToMap(keysAndValues))
}

func kvToMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
