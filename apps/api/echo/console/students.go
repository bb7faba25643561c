package console

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/user"
	"github.com/trezcool/kia/services/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func registerStudents(g *echo.Group, cons *Console) {
	sg := g.Group("/students")
	sg.GET("", cons.listStudents)
	sg.GET("/create", cons.createStudentPage)
	sg.POST("/create", cons.createStudent)
	sg.GET("/import", cons.importStudentsPage)
	sg.POST("/import", cons.importStudents)
	sg.GET("/import/template", cons.studentImportTemplate)
	sg.GET("/:id/edit", cons.editStudentPage)
	sg.POST("/:id/edit", cons.editStudent)
	sg.POST("/:id/image", cons.uploadStudentImage)
	sg.POST("/:id/delete", cons.deleteStudent)
}

type (
	studentList struct {
		Students []student.Student
		Classes  []classe.Classe
		ClassID  int
		Search   string
	}

	studentForm struct {
		ID              int
		FullName        string
		DateOfBirth     string
		ParentID        int
		ClassID         int
		ProfileImageURL string
		Parents         []user.User
		Classes         []classe.Classe
	}
)

func (cons *Console) parentsAndClasses(ctx echo.Context) ([]user.User, []classe.Classe, error) {
	parents, err := cons.deps.UserSvc.Query(
		ctx.Request().Context(),
		&user.QueryFilter{Role: user.RoleParent},
		[]core.DBOrdering{{Field: "full_name", Ascending: true}},
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying parents")
	}
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying classes")
	}
	return parents, classes, nil
}

func (cons *Console) listStudents(ctx echo.Context) error {
	filter := &student.QueryFilter{
		Search:   ctx.QueryParam("q"),
		ClassID:  queryInt(ctx, "class_id"),
		ParentID: queryInt(ctx, "parent_id"),
	}
	filter.Clean()

	students, err := cons.deps.StudentSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	data := studentList{Students: students, Classes: classes, ClassID: filter.ClassID, Search: filter.Search}
	return cons.render(ctx, http.StatusOK, "students", "Students", nil, data, nil)
}

func (cons *Console) renderStudentForm(ctx echo.Context, code int, title string, form studentForm, errs map[string]string) error {
	parents, classes, err := cons.parentsAndClasses(ctx)
	if err != nil {
		return err
	}
	form.Parents, form.Classes = parents, classes
	return cons.render(ctx, code, "student_form", title, form, nil, errs)
}

func (cons *Console) createStudentPage(ctx echo.Context) error {
	return cons.renderStudentForm(ctx, http.StatusOK, "Create Student", studentForm{}, nil)
}

func (cons *Console) createStudent(ctx echo.Context) error {
	var ns student.NewStudent
	err := bindForm(ctx, &ns)
	if err == nil {
		err = ns.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.StudentSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		return cons.renderStudentForm(ctx, http.StatusBadRequest, "Create Student", newStudentForm(0, ns), errs)
	}

	st, err := cons.deps.StudentSvc.Create(ctx.Request().Context(), ns)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	if err := cons.saveStudentImage(ctx, st); err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		setFlash(ctx, flashDanger, "Student created, but the profile image was rejected: "+errs["profile_image"])
		return ctx.Redirect(http.StatusSeeOther, Prefix+"/students")
	}
	return redirect(ctx, flashSuccess, "Student created successfully.", "/students")
}

func newStudentForm(id int, ns student.NewStudent) studentForm {
	return studentForm{
		ID:          id,
		FullName:    ns.FullName,
		DateOfBirth: ns.DateOfBirth.String(),
		ParentID:    ns.ParentID,
		ClassID:     ns.ClassID,
	}
}

// saveStudentImage stores the optional "profile_image" upload of the request.
func (cons *Console) saveStudentImage(ctx echo.Context, st student.Student) error {
	upload, closeUpload, err := formUpload(ctx, "profile_image")
	if err != nil {
		return err
	}
	defer closeUpload()
	if upload == nil {
		return nil
	}
	_, err = cons.deps.StudentSvc.SetProfileImage(ctx.Request().Context(), st, *upload)
	return err
}

func (cons *Console) getStudent(ctx echo.Context) (student.Student, error) {
	id, err := idParam(ctx)
	if err != nil {
		return student.Student{}, err
	}
	st, err := cons.deps.StudentSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return st, nil
}

func (cons *Console) editStudentPage(ctx echo.Context) error {
	st, err := cons.getStudent(ctx)
	if err != nil {
		return err
	}
	form := studentForm{
		ID:              st.ID,
		FullName:        st.FullName,
		DateOfBirth:     st.DateOfBirth.String(),
		ParentID:        st.ParentID,
		ClassID:         st.ClassID.Int,
		ProfileImageURL: st.ProfileImageURL.String,
	}
	return cons.renderStudentForm(ctx, http.StatusOK, "Edit Student", form, nil)
}

func (cons *Console) editStudent(ctx echo.Context) error {
	st, err := cons.getStudent(ctx)
	if err != nil {
		return err
	}

	var ns student.NewStudent
	err = bindForm(ctx, &ns)
	if err == nil {
		err = ns.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.StudentSvc)
	}
	if err == nil {
		st, err = cons.deps.StudentSvc.Update(ctx.Request().Context(), st, ns)
		if err != nil {
			return errors.Wrap(err, "updating student")
		}
		err = cons.saveStudentImage(ctx, st)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		form := newStudentForm(st.ID, ns)
		form.ProfileImageURL = st.ProfileImageURL.String
		return cons.renderStudentForm(ctx, http.StatusBadRequest, "Edit Student", form, errs)
	}
	return redirect(ctx, flashSuccess, "Student updated successfully.", "/students")
}

func (cons *Console) uploadStudentImage(ctx echo.Context) error {
	st, err := cons.getStudent(ctx)
	if err != nil {
		return err
	}
	upload, closeUpload, err := formUpload(ctx, "profile_image")
	if err != nil {
		return err
	}
	defer closeUpload()
	if upload == nil {
		return redirect(ctx, flashDanger, "Please choose an image.", "/students")
	}

	if _, err := cons.deps.StudentSvc.SetProfileImage(ctx.Request().Context(), st, *upload); err != nil {
		if errs, ok := cons.formErrors(err); ok {
			return redirect(ctx, flashDanger, errs["profile_image"], "/students")
		}
		return errors.Wrap(err, "setting profile image")
	}
	return redirect(ctx, flashSuccess, "Profile image updated successfully.", "/students")
}

func (cons *Console) deleteStudent(ctx echo.Context) error {
	st, err := cons.getStudent(ctx)
	if err != nil {
		return err
	}
	if err := cons.deps.StudentSvc.Delete(ctx.Request().Context(), st); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return redirect(ctx, flashSuccess, "Student deleted successfully.", "/students")
}

func (cons *Console) importStudentsPage(ctx echo.Context) error {
	return cons.render(ctx, http.StatusOK, "student_import", "Import Students", nil, nil, nil)
}

func (cons *Console) importStudents(ctx echo.Context) error {
	upload, closeUpload, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeUpload()
	if upload == nil {
		errs := map[string]string{"file": "Please choose an xlsx file."}
		return cons.render(ctx, http.StatusBadRequest, "student_import", "Import Students", nil, nil, errs)
	}

	rows, err := report.ReadStudents(upload.Content)
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "reading students sheet")
		}
		return cons.render(ctx, http.StatusBadRequest, "student_import", "Import Students", nil, nil, errs)
	}

	res := cons.deps.StudentSvc.Import(ctx.Request().Context(), rows, cons.deps.Validate)
	return cons.render(ctx, http.StatusOK, "student_import", "Import Students", nil, res, nil)
}

func (cons *Console) studentImportTemplate(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := report.WriteStudentTemplate(&buf); err != nil {
		return errors.Wrap(err, "writing import template")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
