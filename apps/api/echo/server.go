package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/apps/api/echo/console"
	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/notification"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
	"github.com/trezcool/kia/storage/session"
)

const (
	apiPrefix     = "/api"
	consolePrefix = "/admin"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         user.Service
		ClasseSvc       classe.Service
		StudentSvc      student.Service
		SubjectSvc      subject.Service
		MaterialSvc     material.Service
		PaymentSvc      payment.Service
		AttendanceSvc   attendance.Service
		NotificationSvc notification.Service

		Sessions session.Store
		// UploadDir is served under Conf.Storage.URLPrefix; empty when uploads live elsewhere (s3).
		UploadDir string
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		tokens   *TokenIssuer
		metrics  *metrics
		console  *console.Console
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) (Server, error) {
	cons, err := console.New(console.Deps{
		Conf:            deps.Conf,
		Logger:          deps.Logger,
		Validate:        deps.Validate,
		Translator:      deps.Translator,
		UserSvc:         deps.UserSvc,
		ClasseSvc:       deps.ClasseSvc,
		StudentSvc:      deps.StudentSvc,
		SubjectSvc:      deps.SubjectSvc,
		MaterialSvc:     deps.MaterialSvc,
		PaymentSvc:      deps.PaymentSvc,
		AttendanceSvc:   deps.AttendanceSvc,
		NotificationSvc: deps.NotificationSvc,
		Sessions:        deps.Sessions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "setting up console")
	}

	s := &server{
		deps:     deps,
		app:      echo.New(),
		tokens:   NewTokenIssuer(deps.Conf),
		metrics:  newMetrics(),
		console:  cons,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s, nil
}

func (s *server) setup() {
	conf := s.deps.Conf
	debug := conf.Debug

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(s.metrics.middleware)
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(ctx echo.Context) bool {
			return !strings.HasPrefix(ctx.Request().URL.Path, apiPrefix)
		},
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(
		s.deps.Logger, s.deps.Translator, s.SignalShutdown, consolePrefix, s.console.HandleError)
	s.app.Renderer = s.console
	s.app.Debug = debug

	s.app.GET("/", home)
	s.app.GET(metricsPath, s.metrics.handler())
	if s.deps.UploadDir != "" {
		s.app.Static(conf.Storage.URLPrefix, s.deps.UploadDir)
	}

	// mobile API
	api := s.app.Group(apiPrefix)
	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())
	rateLimit := rateLimitMiddleware(conf.Server.LoginRateLimit)

	registerPageAPI(api)
	registerUserAPI(api, jwt, rateLimit, &userApi{
		svc:      s.deps.UserSvc,
		tokens:   s.tokens,
		validate: s.deps.Validate,
		logger:   s.deps.Logger,
	})

	pg := api.Group("", jwt, tokenTypeMiddleware(TokenAccess), parentMiddleware(s.deps.UserSvc))
	registerStudentAPI(pg, &studentApi{
		svc:    s.deps.StudentSvc,
		subSvc: s.deps.SubjectSvc,
		attSvc: s.deps.AttendanceSvc,
		paySvc: s.deps.PaymentSvc,
	})
	registerSubjectAPI(pg, &subjectApi{
		svc:    s.deps.SubjectSvc,
		stSvc:  s.deps.StudentSvc,
		matSvc: s.deps.MaterialSvc,
	})
	registerPaymentAPI(pg, &paymentApi{svc: s.deps.PaymentSvc, stSvc: s.deps.StudentSvc})
	registerNotificationAPI(pg, &notificationApi{svc: s.deps.NotificationSvc})

	// admin console
	s.console.Register(s.app.Group(consolePrefix))
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the server to shut it down gracefully.
func (s *server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to KIA API!")
}
