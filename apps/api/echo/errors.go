package echoapi

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errWrongTokenType     = echo.NewHTTPError(http.StatusUnauthorized, "invalid token type")
	errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	errMissingCredentials = echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	errAccountDeactivated = echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
	errParentsOnly        = echo.NewHTTPError(http.StatusForbidden, "Access denied. Parents only.")
	errAccessDenied       = echo.NewHTTPError(http.StatusForbidden, "Access denied")
	errStudentNotFound    = echo.NewHTTPError(http.StatusNotFound, "Student not found")
	errSubjectNotFound    = echo.NewHTTPError(http.StatusNotFound, "Subject not found")
	errPageNotFound       = echo.NewHTTPError(http.StatusNotFound, "Page not found")
	errNoClass            = echo.NewHTTPError(http.StatusBadRequest, "Student is not assigned to a class")
	errFCMTokenRequired   = echo.NewHTTPError(http.StatusBadRequest, "FCM token is required")
	errNoFCMToken         = echo.NewHTTPError(http.StatusBadRequest, "User has no FCM token registered")
	errPushFailed         = echo.NewHTTPError(http.StatusInternalServerError, "Failed to send notification")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
// Errors raised under consolePrefix are rendered by consoleHandler.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	signalShutdown func(),
	consolePrefix string,
	consoleHandler echo.HTTPErrorHandler,
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if core.IsShutdown(err) {
			defer signalShutdown()
		}
		if consoleHandler != nil && strings.HasPrefix(ctx.Request().URL.Path, consolePrefix) {
			consoleHandler(err, ctx)
			return
		}

		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing || origErr.Message == middleware.ErrJWTMissing.Message {
				code = http.StatusUnauthorized
				message = middleware.ErrJWTMissing.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID, _ = claims.UserID()
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
