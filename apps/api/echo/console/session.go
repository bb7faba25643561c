package console

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
	"github.com/trezcool/kia/storage/session"
)

const (
	sessionCookie = "kia_session"
	flashCookie   = "kia_flash"

	contextAdminKey = "admin"
	contextFlashKey = "flash"

	msgInvalidLogin = "Invalid email or password, or not an admin."
)

// Flash kinds
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashDanger  = "danger"
)

type flash struct {
	Kind    string
	Message string
}

// setFlash stores a message displayed by the next rendered page.
func setFlash(ctx echo.Context, kind, msg string) {
	ctx.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + msg),
		Path:     Prefix,
		HttpOnly: true,
	})
}

// showFlash displays a message on the page rendered by the current request.
func showFlash(ctx echo.Context, kind, msg string) {
	ctx.Set(contextFlashKey, &flash{Kind: kind, Message: msg})
}

func popFlash(ctx echo.Context) *flash {
	if f, ok := ctx.Get(contextFlashKey).(*flash); ok {
		return f
	}
	cookie, err := ctx.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	ctx.SetCookie(&http.Cookie{Name: flashCookie, Path: Prefix, MaxAge: -1, HttpOnly: true})

	val, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	return &flash{Kind: parts[0], Message: parts[1]}
}

// sessionAdmin returns the active admin owning the request session, if any.
func (cons *Console) sessionAdmin(ctx echo.Context) (user.User, bool, error) {
	cookie, err := ctx.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return user.User{}, false, nil
	}
	sess, err := cons.deps.Sessions.Get(ctx.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return user.User{}, false, nil
		}
		return user.User{}, false, errors.Wrap(err, "getting session")
	}
	usr, err := cons.deps.UserSvc.GetByID(ctx.Request().Context(), sess.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, false, nil
		}
		return user.User{}, false, errors.Wrap(err, "finding session user")
	}
	if !(usr.IsActive && usr.IsAdmin()) {
		return user.User{}, false, nil
	}
	return usr, true, nil
}

// adminMiddleware redirects anonymous requests to the login page.
func (cons *Console) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		admin, ok, err := cons.sessionAdmin(ctx)
		if err != nil {
			return err
		}
		if !ok {
			loginURL := Prefix + "/login"
			if ctx.Request().Method == http.MethodGet {
				loginURL += "?next=" + url.QueryEscape(ctx.Request().URL.RequestURI())
			}
			return ctx.Redirect(http.StatusSeeOther, loginURL)
		}
		ctx.Set(contextAdminKey, admin)
		return next(ctx)
	}
}

func contextAdmin(ctx echo.Context) user.User {
	admin, _ := ctx.Get(contextAdminKey).(user.User)
	return admin
}

// safeNext keeps post-login redirects inside the console.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, Prefix+"/") || strings.HasPrefix(next, "//") {
		return Prefix + "/dashboard"
	}
	return next
}

// Handlers

func (cons *Console) loginPage(ctx echo.Context) error {
	if _, ok, err := cons.sessionAdmin(ctx); err != nil {
		return err
	} else if ok {
		return ctx.Redirect(http.StatusSeeOther, Prefix+"/dashboard")
	}
	return cons.render(ctx, http.StatusOK, "login", "Login", LoginForm{Next: ctx.QueryParam("next")}, nil, nil)
}

func (cons *Console) login(ctx echo.Context) error {
	var form LoginForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginForm")
	}
	form.Email = core.CleanString(form.Email, true /* lower */)

	usr, err := cons.deps.UserSvc.GetByEmail(ctx.Request().Context(), form.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding user by email")
	}
	if err != nil || usr.CheckPassword(form.Password) != nil || !usr.IsAdmin() || !usr.IsActive {
		showFlash(ctx, flashDanger, msgInvalidLogin)
		form.Password = ""
		return cons.render(ctx, http.StatusOK, "login", "Login", form, nil, nil)
	}

	if usr, err = cons.deps.UserSvc.SetLastLogin(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	ttl := cons.deps.Conf.Server.SessionTTL
	sess, err := cons.deps.Sessions.Create(ctx.Request().Context(), usr.ID, ttl)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     Prefix,
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cons.deps.Conf.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	setFlash(ctx, flashSuccess, "Logged in successfully.")
	return ctx.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (cons *Console) logout(ctx echo.Context) error {
	if cookie, err := ctx.Cookie(sessionCookie); err == nil {
		if err := cons.deps.Sessions.Delete(ctx.Request().Context(), cookie.Value); err != nil {
			return errors.Wrap(err, "deleting session")
		}
	}
	ctx.SetCookie(&http.Cookie{Name: sessionCookie, Path: Prefix, MaxAge: -1, HttpOnly: true})
	return redirect(ctx, flashInfo, "Logged out successfully.", "/login")
}

type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Next     string `form:"next"`
}
