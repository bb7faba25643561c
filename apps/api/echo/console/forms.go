package console

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
)

// nonFieldErrors is the Errors key of messages not tied to a form field.
const nonFieldErrors = "__all__"

var errNotFound = echo.NewHTTPError(http.StatusNotFound, "Page not found")

// bindForm binds the request form to dst. Malformed values become a validation error.
func bindForm(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Code == http.StatusBadRequest {
			return core.NewValidationError(errors.Errorf("%v", herr.Message))
		}
		return errors.Wrap(err, "binding form")
	}
	return nil
}

// formErrors maps validation errors to form fields. It reports false for any other error.
func (cons *Console) formErrors(err error) (map[string]string, bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		errs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			errs[vErr.Field()] = vErr.Translate(cons.deps.Translator)
		}
		return errs, true
	case *core.ValidationError:
		if origErr.Fields == nil {
			return map[string]string{nonFieldErrors: origErr.Error()}, true
		}
		errs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			errs[fErr.Field] = fErr.Error
		}
		return errs, true
	}
	return nil, false
}

// idParam returns the positive integer ":id" path param.
func idParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}

// queryInt returns the integer query param name, or 0.
func queryInt(ctx echo.Context, name string) int {
	n, _ := strconv.Atoi(ctx.QueryParam(name))
	return n
}

// formUpload returns the file of the multipart field name, or nil when none was sent.
// The returned closer must be called once the upload is consumed.
func formUpload(ctx echo.Context, name string) (*core.Upload, func(), error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile || errors.Cause(err) == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, func() {}, errors.Wrap(err, "reading uploaded file")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "opening uploaded file")
	}
	upload := &core.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}
	return upload, func() { _ = f.Close() }, nil
}

// checked reports whether the checkbox name was ticked.
func checked(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.FormValue(name))
	return b || ctx.FormValue(name) == "on"
}
