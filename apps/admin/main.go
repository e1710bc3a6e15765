package main

import (
	"fmt"
	"os"
	"time"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
	"github.com/trezcool/tutora/core/user"
	agendasvc "github.com/trezcool/tutora/services/agenda"
	emailsvc "github.com/trezcool/tutora/services/email"
	logsvc "github.com/trezcool/tutora/services/logger"
	"github.com/trezcool/tutora/storage/database"
	sqlxrepos "github.com/trezcool/tutora/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	rootLogger := logsvc.NewRollbarLogger(os.Stdout, conf)
	rootLogger.Enable(!conf.Debug && conf.RollbarToken != "")
	logger := rootLogger.Named("admin")

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}
	if err = database.SetUpGoose(db, logger); err != nil {
		logger.Fatal(fmt.Sprintf("setting up migrations: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	lessonSvc := lesson.NewService(db, sqlxrepos.NewLessonRepository(db))

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		usrSvc:    usrSvc,
		agendaSvc: agendasvc.NewService(conf, usrSvc, lessonSvc, mailSvc, logger),
		nowFunc:   time.Now,
	}
	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		code = 1
	}
	mailSvc.Wait()
	_ = db.Close()
	os.Exit(code)
}
