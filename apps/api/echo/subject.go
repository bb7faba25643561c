package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
)

type subjectApi struct {
	svc    subject.Service
	stSvc  student.Service
	matSvc material.Service
}

func registerSubjectAPI(g *echo.Group, api *subjectApi) {
	sg := g.Group("/subjects")
	sg.GET("/:id", api.retrieve, api.classMemberMiddleware)
	sg.GET("/:id/materials", api.materials, api.classMemberMiddleware)
}

// classMemberMiddleware loads the requested subject into the context. The authenticated parent
// must have a child in the subject's class.
func (api *subjectApi) classMemberMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		parent, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		id, err := idParam(ctx, "id", errSubjectNotFound)
		if err != nil {
			return err
		}

		sub, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == subject.ErrNotFound {
				return errSubjectNotFound
			}
			return errors.Wrap(err, "finding subject")
		}

		n, err := api.stSvc.Count(ctx.Request().Context(), &student.QueryFilter{ParentID: parent.ID, ClassID: sub.ClassID})
		if err != nil {
			return errors.Wrap(err, "counting children in class")
		}
		if n == 0 {
			return errAccessDenied
		}
		ctx.Set("object", sub)
		return next(ctx)
	}
}

// Handlers

func (api *subjectApi) retrieve(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(subject.Subject)
	if !ok {
		return errors.New("subject object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) materials(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(subject.Subject)
	if !ok {
		return errors.New("subject object not found in echo.Context")
	}

	mats, err := api.matSvc.Query(
		ctx.Request().Context(),
		&material.QueryFilter{SubjectID: sub.ID},
		[]core.DBOrdering{{Field: "order_index", Ascending: true}},
	)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if mats == nil {
		mats = []material.Material{}
	}
	return ctx.JSON(http.StatusOK, mats)
}
