package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
)

type paymentApi struct {
	svc   payment.Service
	stSvc student.Service
}

func registerPaymentAPI(g *echo.Group, api *paymentApi) {
	pg := g.Group("/payments")
	pg.GET("/summary", api.summary)
}

// Handlers

func (api *paymentApi) summary(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	children, err := api.stSvc.ListForParent(ctx.Request().Context(), parent.ID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}

	summary, err := api.svc.SummarizeParent(ctx.Request().Context(), children)
	if err != nil {
		return errors.Wrap(err, "summarizing payments")
	}
	return ctx.JSON(http.StatusOK, summary)
}
