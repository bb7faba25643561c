package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/subject"
)

func registerClasses(g *echo.Group, cons *Console) {
	cg := g.Group("/classes")
	cg.GET("", cons.listClasses)
	cg.GET("/create", cons.createClassePage)
	cg.POST("/create", cons.createClasse)
	cg.GET("/:id/edit", cons.editClassePage)
	cg.POST("/:id/edit", cons.editClasse)
	cg.POST("/:id/delete", cons.deleteClasse)
}

type classeForm struct {
	ID          int
	Name        string
	Description string
}

func (cons *Console) listClasses(ctx echo.Context) error {
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return cons.render(ctx, http.StatusOK, "classes", "Classes", nil, classes, nil)
}

func (cons *Console) createClassePage(ctx echo.Context) error {
	return cons.render(ctx, http.StatusOK, "classe_form", "Create Class", classeForm{}, nil, nil)
}

func (cons *Console) createClasse(ctx echo.Context) error {
	var nc classe.NewClasse
	err := bindForm(ctx, &nc)
	if err == nil {
		err = nc.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.ClasseSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		form := classeForm{Name: nc.Name, Description: nc.Description}
		return cons.render(ctx, http.StatusBadRequest, "classe_form", "Create Class", form, nil, errs)
	}

	if _, err := cons.deps.ClasseSvc.Create(ctx.Request().Context(), nc); err != nil {
		return errors.Wrap(err, "creating class")
	}
	return redirect(ctx, flashSuccess, "Class created successfully.", "/classes")
}

func (cons *Console) getClasse(ctx echo.Context) (classe.Classe, error) {
	id, err := idParam(ctx)
	if err != nil {
		return classe.Classe{}, err
	}
	cls, err := cons.deps.ClasseSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == classe.ErrNotFound {
			return classe.Classe{}, errNotFound
		}
		return classe.Classe{}, errors.Wrap(err, "finding class")
	}
	return cls, nil
}

func (cons *Console) editClassePage(ctx echo.Context) error {
	cls, err := cons.getClasse(ctx)
	if err != nil {
		return err
	}
	form := classeForm{ID: cls.ID, Name: cls.Name, Description: cls.Description}
	return cons.render(ctx, http.StatusOK, "classe_form", "Edit Class", form, nil, nil)
}

func (cons *Console) editClasse(ctx echo.Context) error {
	cls, err := cons.getClasse(ctx)
	if err != nil {
		return err
	}

	var nc classe.NewClasse
	err = bindForm(ctx, &nc)
	if err == nil {
		err = nc.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.ClasseSvc, cls.ID)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		form := classeForm{ID: cls.ID, Name: nc.Name, Description: nc.Description}
		return cons.render(ctx, http.StatusBadRequest, "classe_form", "Edit Class", form, nil, errs)
	}

	if _, err := cons.deps.ClasseSvc.Update(ctx.Request().Context(), cls, nc); err != nil {
		return errors.Wrap(err, "updating class")
	}
	return redirect(ctx, flashSuccess, "Class updated successfully.", "/classes")
}

// deleteClasse removes the class with its subjects and their material files.
// Students of the class are kept, without a class.
func (cons *Console) deleteClasse(ctx echo.Context) error {
	cls, err := cons.getClasse(ctx)
	if err != nil {
		return err
	}

	subjects, err := cons.deps.SubjectSvc.Query(ctx.Request().Context(), &subject.QueryFilter{ClassID: cls.ID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying class subjects")
	}
	for _, sub := range subjects {
		if err := cons.deps.MaterialSvc.DeleteForSubject(ctx.Request().Context(), sub.ID); err != nil {
			return errors.Wrapf(err, "deleting materials of subject %d", sub.ID)
		}
	}
	if err := cons.deps.ClasseSvc.Delete(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return redirect(ctx, flashSuccess, "Class deleted successfully.", "/classes")
}
