package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/subject"
)

func registerSubjects(g *echo.Group, cons *Console) {
	sg := g.Group("/subjects")
	sg.GET("", cons.listSubjects)
	sg.GET("/create", cons.createSubjectPage)
	sg.POST("/create", cons.createSubject)
	sg.GET("/:id/edit", cons.editSubjectPage)
	sg.POST("/:id/edit", cons.editSubject)
	sg.POST("/:id/delete", cons.deleteSubject)
}

type (
	subjectList struct {
		Subjects []subject.Subject
		Classes  []classe.Classe
		ClassID  int
	}

	subjectForm struct {
		ID          int
		Name        string
		Description string
		ClassID     int
		Classes     []classe.Classe
	}
)

func (cons *Console) listSubjects(ctx echo.Context) error {
	filter := &subject.QueryFilter{ClassID: queryInt(ctx, "class_id")}
	subjects, err := cons.deps.SubjectSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	data := subjectList{Subjects: subjects, Classes: classes, ClassID: filter.ClassID}
	return cons.render(ctx, http.StatusOK, "subjects", "Subjects", nil, data, nil)
}

func (cons *Console) renderSubjectForm(ctx echo.Context, code int, title string, form subjectForm, errs map[string]string) error {
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	form.Classes = classes
	return cons.render(ctx, code, "subject_form", title, form, nil, errs)
}

func (cons *Console) createSubjectPage(ctx echo.Context) error {
	return cons.renderSubjectForm(ctx, http.StatusOK, "Create Subject", subjectForm{ClassID: queryInt(ctx, "class_id")}, nil)
}

func (cons *Console) createSubject(ctx echo.Context) error {
	var ns subject.NewSubject
	err := bindForm(ctx, &ns)
	if err == nil {
		err = ns.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.SubjectSvc)
	}
	if err == nil {
		_, err = cons.deps.SubjectSvc.Create(ctx.Request().Context(), ns)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "creating subject")
		}
		form := subjectForm{Name: ns.Name, Description: ns.Description, ClassID: ns.ClassID}
		return cons.renderSubjectForm(ctx, http.StatusBadRequest, "Create Subject", form, errs)
	}
	return redirect(ctx, flashSuccess, "Subject created successfully.", "/subjects")
}

func (cons *Console) getSubject(ctx echo.Context) (subject.Subject, error) {
	id, err := idParam(ctx)
	if err != nil {
		return subject.Subject{}, err
	}
	sub, err := cons.deps.SubjectSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return subject.Subject{}, errNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "finding subject")
	}
	return sub, nil
}

func (cons *Console) editSubjectPage(ctx echo.Context) error {
	sub, err := cons.getSubject(ctx)
	if err != nil {
		return err
	}
	form := subjectForm{ID: sub.ID, Name: sub.Name, Description: sub.Description, ClassID: sub.ClassID}
	return cons.renderSubjectForm(ctx, http.StatusOK, "Edit Subject", form, nil)
}

func (cons *Console) editSubject(ctx echo.Context) error {
	sub, err := cons.getSubject(ctx)
	if err != nil {
		return err
	}

	var ns subject.NewSubject
	err = bindForm(ctx, &ns)
	if err == nil {
		err = ns.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.SubjectSvc, sub.ID)
	}
	if err == nil {
		_, err = cons.deps.SubjectSvc.Update(ctx.Request().Context(), sub, ns)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "updating subject")
		}
		form := subjectForm{ID: sub.ID, Name: ns.Name, Description: ns.Description, ClassID: ns.ClassID}
		return cons.renderSubjectForm(ctx, http.StatusBadRequest, "Edit Subject", form, errs)
	}
	return redirect(ctx, flashSuccess, "Subject updated successfully.", "/subjects")
}

func (cons *Console) deleteSubject(ctx echo.Context) error {
	sub, err := cons.getSubject(ctx)
	if err != nil {
		return err
	}
	if err := cons.deps.MaterialSvc.DeleteForSubject(ctx.Request().Context(), sub.ID); err != nil {
		return errors.Wrap(err, "deleting subject materials")
	}
	if err := cons.deps.SubjectSvc.Delete(ctx.Request().Context(), sub.ID); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return redirect(ctx, flashSuccess, "Subject deleted successfully.", "/subjects")
}
