package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

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
	inmemdb "github.com/trezcool/kia/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Kia-Acad3my!"

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "KIA",
		SecretKey:        "test-secret-key",
		BaseURL:          "http://localhost:8000",
		FrontendBaseURL:  "http://localhost:8000",
		DefaultFromEmail: mail.Address{Name: "KIA", Address: "noreply@kia.test"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
			SessionTTL:                time.Hour,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Storage: core.StorageConfig{
			Backend:           "local",
			URLPrefix:         "/uploads",
			MaxUploadSize:     1 << 20,
			AllowedExtensions: []string{"pdf", "doc", "docx", "ppt", "pptx", "png", "jpg", "jpeg"},
			ImageExtensions:   []string{"png", "jpg", "jpeg"},
		},
		Reminders: core.ReminderConfig{Schedule: "0 8 * * *", DaysAhead: 3},
	}
}

// NewLogger discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// App wires every service on top of an in-memory database.
type App struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	DB      *inmemdb.DB
	Storage *filestore.LocalStorage
	Push    *pushsvc.ConsoleService

	UserRepo       user.Repository
	ClasseRepo     classe.Repository
	StudentRepo    student.Repository
	SubjectRepo    subject.Repository
	MaterialRepo   material.Repository
	PaymentRepo    payment.Repository
	AttendanceRepo attendance.Repository

	UserSvc         user.Service
	ClasseSvc       classe.Service
	StudentSvc      student.Service
	SubjectSvc      subject.Service
	MaterialSvc     material.Service
	PaymentSvc      payment.Service
	AttendanceSvc   attendance.Service
	NotificationSvc notification.Service
}

func NewApp(t *testing.T) *App {
	t.Helper()

	conf := NewConfig()
	conf.Storage.UploadDir = t.TempDir()
	logger := NewLogger(conf)
	validate, translator := NewValidator()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.Open()
	app := &App{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DB:             db,
		Storage:        filestore.NewLocalStorage(conf),
		Push:           pushsvc.NewConsoleServiceMock(),
		UserRepo:       inmemdb.NewUserRepository(db),
		ClasseRepo:     inmemdb.NewClasseRepository(db),
		StudentRepo:    inmemdb.NewStudentRepository(db),
		SubjectRepo:    inmemdb.NewSubjectRepository(db),
		MaterialRepo:   inmemdb.NewMaterialRepository(db),
		PaymentRepo:    inmemdb.NewPaymentRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
	}

	app.UserSvc = user.NewService(app.UserRepo, emailsvc.NewConsoleServiceMock(conf, logger), conf)
	app.ClasseSvc = classe.NewService(app.ClasseRepo)
	app.StudentSvc = student.NewService(app.StudentRepo, app.UserSvc, app.ClasseSvc, app.Storage, conf)
	app.SubjectSvc = subject.NewService(app.SubjectRepo, app.ClasseSvc)
	app.MaterialSvc = material.NewService(app.MaterialRepo, app.SubjectSvc, app.Storage, conf)
	app.PaymentSvc = payment.NewService(app.PaymentRepo, app.StudentSvc)
	app.AttendanceSvc = attendance.NewService(app.AttendanceRepo, app.StudentSvc)
	app.NotificationSvc = notification.NewService(
		app.UserSvc, app.StudentSvc, app.SubjectSvc, app.MaterialSvc, app.PaymentSvc, app.Push, logger)
	return app
}

func (app *App) CreateUser(t *testing.T, fullName, email, pwd, role string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:     email,
		FullName:  fullName,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := app.UserRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateParent creates an active parent with Password.
func (app *App) CreateParent(t *testing.T, fullName, email string) user.User {
	t.Helper()
	return app.CreateUser(t, fullName, email, Password, user.RoleParent, true)
}

// CreateAdmin creates an active admin with Password.
func (app *App) CreateAdmin(t *testing.T, fullName, email string) user.User {
	t.Helper()
	return app.CreateUser(t, fullName, email, Password, user.RoleAdmin, true)
}

// SetFCMToken registers a device token for usr.
func (app *App) SetFCMToken(t *testing.T, usr user.User, token string) user.User {
	t.Helper()
	usr.FCMToken = token
	usr, err := app.UserRepo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("SetFCMToken() failed: %v", err)
	}
	return usr
}

func (app *App) CreateClasse(t *testing.T, name string) classe.Classe {
	t.Helper()
	cls, err := app.ClasseRepo.CreateClasse(context.Background(), classe.Classe{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateClasse() failed: %v", err)
	}
	return cls
}

// CreateStudent creates a child of parentID; a zero classID leaves them without a class.
func (app *App) CreateStudent(t *testing.T, fullName string, parentID, classID int) student.Student {
	t.Helper()
	st, err := app.StudentRepo.CreateStudent(context.Background(), student.Student{
		ParentID:  parentID,
		ClassID:   null.NewInt(classID, classID > 0),
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func (app *App) CreateSubject(t *testing.T, name string, classID int) subject.Subject {
	t.Helper()
	sub, err := app.SubjectRepo.CreateSubject(context.Background(), subject.Subject{
		ClassID:   classID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

// CreateVideo creates a video material.
func (app *App) CreateVideo(t *testing.T, title string, subjectID, orderIndex int) material.Material {
	t.Helper()
	mat, err := app.MaterialRepo.CreateMaterial(context.Background(), material.Material{
		SubjectID:  subjectID,
		Title:      title,
		Type:       material.TypeVideo,
		VideoURL:   null.StringFrom("https://videos.kia.test/" + title),
		OrderIndex: orderIndex,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateVideo() failed: %v", err)
	}
	return mat
}

func (app *App) CreatePayment(t *testing.T, studentID int, amount float64, dueDate string, isPaid bool) payment.Payment {
	t.Helper()
	due, err := core.ParseDate(dueDate)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	p := payment.Payment{
		StudentID: studentID,
		Amount:    amount,
		DueDate:   due,
		IsPaid:    isPaid,
		CreatedAt: time.Now().UTC(),
	}
	if isPaid {
		p.PaidDate = due
	}
	p, err = app.PaymentRepo.CreatePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}

func (app *App) MarkAttendance(t *testing.T, st student.Student, day core.Date, status string, markedBy int) attendance.Attendance {
	t.Helper()
	now := time.Now().UTC()
	att, err := app.AttendanceRepo.UpsertAttendance(context.Background(), attendance.Attendance{
		StudentID: st.ID,
		ClassID:   st.ClassID.Int,
		Date:      day,
		Status:    status,
		MarkedBy:  markedBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("MarkAttendance() failed: %v", err)
	}
	return att
}
