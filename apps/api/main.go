package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/kia/apps/api/echo"
	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/notification"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
	emailsvc "github.com/trezcool/kia/services/email"
	"github.com/trezcool/kia/services/filestore"
	logsvc "github.com/trezcool/kia/services/logger"
	pushsvc "github.com/trezcool/kia/services/push"
	"github.com/trezcool/kia/services/scheduler"
	"github.com/trezcool/kia/storage/database"
	inmemdb "github.com/trezcool/kia/storage/database/inmem"
	sqlxdb "github.com/trezcool/kia/storage/database/sqlx"
	"github.com/trezcool/kia/storage/session"
)

type repositories struct {
	users      user.Repository
	classes    classe.Repository
	students   student.Repository
	subjects   subject.Repository
	materials  material.Repository
	payments   payment.Repository
	attendance attendance.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	var repos repositories
	if conf.Database.InMemory() {
		logger.Warn("Using the in-memory database: data is lost on shutdown")
		repos = memoryRepositories(inmemdb.Open())
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		repos = postgresRepositories(db)
	}

	// set up sessions
	var sessions session.Store
	if conf.Redis.Addr == "" {
		sessions = session.NewMemoryStore()
	} else {
		client, err := session.Dial(ctx, conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer client.Close()
		sessions = session.NewRedisStore(client)
	}

	// set up file storage
	var (
		storage   core.FileStorage
		uploadDir string
	)
	if conf.Storage.Backend == "s3" {
		s3Storage, err := filestore.NewS3Storage(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up s3 storage: %v", err), err)
		}
		storage = s3Storage
	} else {
		localStorage := filestore.NewLocalStorage(conf)
		storage, uploadDir = localStorage, localStorage.Dir()
	}

	// set up messaging
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var pushSvc core.PushService
	if conf.Firebase.CredentialsFile == "" {
		pushSvc = pushsvc.NewConsoleService(logger)
	} else {
		fcm, err := pushsvc.NewFirebaseService(ctx, conf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up firebase: %v", err), err)
		}
		pushSvc = fcm
	}

	// set up services
	usrSvc := user.NewService(repos.users, mailSvc, conf)
	clsSvc := classe.NewService(repos.classes)
	stSvc := student.NewService(repos.students, usrSvc, clsSvc, storage, conf)
	subSvc := subject.NewService(repos.subjects, clsSvc)
	matSvc := material.NewService(repos.materials, subSvc, storage, conf)
	paySvc := payment.NewService(repos.payments, stSvc)
	attSvc := attendance.NewService(repos.attendance, stSvc)
	notifSvc := notification.NewService(usrSvc, stSvc, subSvc, matSvc, paySvc, pushSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler

	if conf.Reminders.Enabled {
		sched := scheduler.New(notifSvc, logger)
		if err := sched.AddDueReminders(conf.Reminders.Schedule, conf.Reminders.DaysAhead); err != nil {
			logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			ClasseSvc:       clsSvc,
			StudentSvc:      stSvc,
			SubjectSvc:      subSvc,
			MaterialSvc:     matSvc,
			PaymentSvc:      paySvc,
			AttendanceSvc:   attSvc,
			NotificationSvc: notifSvc,
			Sessions:        sessions,
			UploadDir:       uploadDir,
		},
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		users:      sqlxdb.NewUserRepository(db),
		classes:    sqlxdb.NewClasseRepository(db),
		students:   sqlxdb.NewStudentRepository(db),
		subjects:   sqlxdb.NewSubjectRepository(db),
		materials:  sqlxdb.NewMaterialRepository(db),
		payments:   sqlxdb.NewPaymentRepository(db),
		attendance: sqlxdb.NewAttendanceRepository(db),
	}
}

func memoryRepositories(db *inmemdb.DB) repositories {
	return repositories{
		users:      inmemdb.NewUserRepository(db),
		classes:    inmemdb.NewClasseRepository(db),
		students:   inmemdb.NewStudentRepository(db),
		subjects:   inmemdb.NewSubjectRepository(db),
		materials:  inmemdb.NewMaterialRepository(db),
		payments:   inmemdb.NewPaymentRepository(db),
		attendance: inmemdb.NewAttendanceRepository(db),
	}
}
