// Package console serves the server-rendered admin console.
package console

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/notification"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
	appfs "github.com/trezcool/kia/fs"
	"github.com/trezcool/kia/storage/session"
)

const (
	templatesDir = "assets/templates/console"
	baseTemplate = "_base.gohtml"

	csrfField  = "csrf_token"
	csrfCookie = "kia_csrf"

	// Prefix is where the console is mounted.
	Prefix = "/admin"
)

type (
	Deps struct {
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
	}

	// Console renders the admin pages. It implements echo.Renderer.
	Console struct {
		deps      Deps
		templates map[string]*template.Template
	}

	// page is the data of every rendered template.
	page struct {
		Title  string
		Admin  user.User
		CSRF   string
		Flash  *flash
		Errors map[string]string
		Form   interface{}
		Data   interface{}
	}
)

var _ echo.Renderer = (*Console)(nil)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
	"url": func(p string, args ...interface{}) string { return Prefix + fmt.Sprintf(p, args...) },
}

// New parses the console templates; each one is rendered inside the base layout.
func New(deps Deps) (*Console, error) {
	cons := &Console{deps: deps, templates: make(map[string]*template.Template)}

	entries, err := fs.ReadDir(appfs.FS, templatesDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading console templates")
	}
	for _, e := range entries {
		fname := e.Name()
		if e.IsDir() || strings.HasPrefix(fname, "_") || path.Ext(fname) != ".gohtml" {
			continue
		}
		tmpl, err := template.New(baseTemplate).Funcs(funcs).ParseFS(
			appfs.FS, path.Join(templatesDir, baseTemplate), path.Join(templatesDir, fname))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fname)
		}
		cons.templates[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return cons, nil
}

func (cons *Console) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := cons.templates[name]
	if !ok {
		return errors.Errorf("unknown template %q", name)
	}
	return tmpl.Execute(w, data)
}

// Register mounts the console routes on g.
func (cons *Console) Register(g *echo.Group) {
	g.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		CookieName:     csrfCookie,
		CookiePath:     Prefix,
		CookieHTTPOnly: true,
	}))

	login := []echo.MiddlewareFunc{}
	if limit := cons.deps.Conf.Server.LoginRateLimit; limit > 0 {
		login = append(login, middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(limit))))
	}
	g.GET("/login", cons.loginPage)
	g.POST("/login", cons.login, login...)

	ag := g.Group("", cons.adminMiddleware)
	ag.POST("/logout", cons.logout)
	ag.GET("", cons.dashboard)
	ag.GET("/dashboard", cons.dashboard)

	registerUsers(ag, cons)
	registerClasses(ag, cons)
	registerStudents(ag, cons)
	registerSubjects(ag, cons)
	registerMaterials(ag, cons)
	registerPayments(ag, cons)
	registerAttendance(ag, cons)
}

// render writes the named template with the request's admin, CSRF token and pending flash.
func (cons *Console) render(ctx echo.Context, code int, name, title string, form, data interface{}, errs map[string]string) error {
	p := &page{
		Title:  title,
		Flash:  popFlash(ctx),
		Errors: errs,
		Form:   form,
		Data:   data,
	}
	if admin, ok := ctx.Get(contextAdminKey).(user.User); ok {
		p.Admin = admin
	}
	if token, ok := ctx.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		p.CSRF = token
	}
	return ctx.Render(code, name, p)
}

// redirect sets a flash message and redirects to the console path p.
func redirect(ctx echo.Context, kind, msg, p string) error {
	if msg != "" {
		setFlash(ctx, kind, msg)
	}
	return ctx.Redirect(http.StatusSeeOther, Prefix+p)
}

// HandleError renders errors raised under the console as an HTML page.
func (cons *Console) HandleError(err error, ctx echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		code = origErr.Code
		msg = fmt.Sprintf("%v", origErr.Message)
	case *core.ValidationError:
		code = http.StatusBadRequest
		msg = origErr.Error()
	default:
		var usr user.User
		if admin, ok := ctx.Get(contextAdminKey).(user.User); ok {
			usr = admin
		}
		cons.deps.Logger.Error(msg, errors.Wrap(err, msg), usr)
		if ctx.Echo().Debug {
			msg = err.Error()
		}
	}

	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = cons.render(ctx, code, "error", http.StatusText(code), nil, msg, nil)
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
