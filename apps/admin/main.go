package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kia/core"
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
	"github.com/trezcool/kia/storage/database"
	sqlxdb "github.com/trezcool/kia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if conf.Database.InMemory() {
		logger.Fatal("the admin CLI needs the postgres database engine")
	}

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	core.ParseEmailTemplates(conf, logger)

	var pushSvc core.PushService = pushsvc.NewConsoleService(logger)
	if conf.Firebase.CredentialsFile != "" {
		if pushSvc, err = pushsvc.NewFirebaseService(context.Background(), conf, logger); err != nil {
			logger.Fatal(fmt.Sprintf("setting up firebase: %v", err), err)
		}
	}
	var storage core.FileStorage = filestore.NewLocalStorage(conf)
	if conf.Storage.Backend == "s3" {
		if storage, err = filestore.NewS3Storage(context.Background(), conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up s3 storage: %v", err), err)
		}
	}

	usrSvc := user.NewService(sqlxdb.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf)
	clsSvc := classe.NewService(sqlxdb.NewClasseRepository(db))
	stSvc := student.NewService(sqlxdb.NewStudentRepository(db), usrSvc, clsSvc, storage, conf)
	subSvc := subject.NewService(sqlxdb.NewSubjectRepository(db), clsSvc)
	matSvc := material.NewService(sqlxdb.NewMaterialRepository(db), subSvc, storage, conf)
	paySvc := payment.NewService(sqlxdb.NewPaymentRepository(db), stSvc)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		conf:     conf,
		validate: validate,
		out:      os.Stdout,
		usrSvc:   usrSvc,
		clsSvc:   clsSvc,
		subSvc:   subSvc,
		matSvc:   matSvc,
		notifSvc: notification.NewService(usrSvc, stSvc, subSvc, matSvc, paySvc, pushSvc, logger),
	}
	err = cli.run(os.Args)
	closeDB(db.DB, logger)
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}

func closeDB(db *sql.DB, logger core.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Failed to close the database", err)
	}
}
