package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/academia-app/academia/apps/api/echo"
	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
	"github.com/academia-app/academia/core/user"
	emailsvc "github.com/academia-app/academia/services/email"
	logsvc "github.com/academia-app/academia/services/logger"
	"github.com/academia-app/academia/storage/database"
	sqlxrepos "github.com/academia-app/academia/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	groupRepo := sqlxrepos.NewGroupRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	grpSvc := group.NewService(db, groupRepo)
	studSvc := student.NewService(db, sqlxrepos.NewStudentRepository(db), groupRepo)
	lesSvc := lesson.NewService(db, sqlxrepos.NewLessonRepository(db), groupRepo)
	pmtSvc := payment.NewService(sqlxrepos.NewPaymentRepository(db))

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(conf.Server.Address(), &echoapi.Deps{
		Logger:     logger,
		UserSvc:    usrSvc,
		GroupSvc:   grpSvc,
		StudentSvc: studSvc,
		LessonSvc:  lesSvc,
		PaymentSvc: pmtSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB.DB); err != nil {
		return nil, err
	}
	return db, nil
}
