package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/page"
)

func registerPageAPI(g *echo.Group) {
	g.GET("/pages/:slug", retrievePage)
}

func retrievePage(ctx echo.Context) error {
	p, err := page.Get(ctx.Param("slug"))
	if err != nil {
		if errors.Cause(err) == page.ErrNotFound {
			return errPageNotFound
		}
		return errors.Wrap(err, "loading page")
	}
	return ctx.JSON(http.StatusOK, p)
}
