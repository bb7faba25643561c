package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/subject"
)

func registerMaterials(g *echo.Group, cons *Console) {
	mg := g.Group("/materials")
	mg.GET("", cons.listMaterials)
	mg.GET("/create", cons.createMaterialPage)
	mg.POST("/create", cons.createMaterial)
	mg.GET("/:id/edit", cons.editMaterialPage)
	mg.POST("/:id/edit", cons.editMaterial)
	mg.POST("/:id/delete", cons.deleteMaterial)
}

type (
	materialList struct {
		Materials []material.Material
		Subjects  []subject.Subject
		SubjectID int
	}

	materialForm struct {
		ID         int
		Title      string
		Type       string
		SubjectID  int
		VideoURL   string
		FileURL    string
		OrderIndex int
		Notify     bool
		Subjects   []subject.Subject
		Types      []string
	}
)

func (cons *Console) listMaterials(ctx echo.Context) error {
	filter := &material.QueryFilter{SubjectID: queryInt(ctx, "subject_id")}
	mats, err := cons.deps.MaterialSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	subjects, err := cons.deps.SubjectSvc.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	data := materialList{Materials: mats, Subjects: subjects, SubjectID: filter.SubjectID}
	return cons.render(ctx, http.StatusOK, "materials", "Materials", nil, data, nil)
}

func (cons *Console) renderMaterialForm(ctx echo.Context, code int, title string, form materialForm, errs map[string]string) error {
	subjects, err := cons.deps.SubjectSvc.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	form.Subjects = subjects
	form.Types = []string{material.TypeFile, material.TypeVideo}
	return cons.render(ctx, code, "material_form", title, form, nil, errs)
}

func newMaterialForm(id int, nm material.NewMaterial, notify bool) materialForm {
	return materialForm{
		ID:         id,
		Title:      nm.Title,
		Type:       nm.Type,
		SubjectID:  nm.SubjectID,
		VideoURL:   nm.VideoURL,
		OrderIndex: nm.OrderIndex,
		Notify:     notify,
	}
}

func (cons *Console) createMaterialPage(ctx echo.Context) error {
	form := materialForm{Type: material.TypeFile, SubjectID: queryInt(ctx, "subject_id")}
	return cons.renderMaterialForm(ctx, http.StatusOK, "Create Material", form, nil)
}

func (cons *Console) createMaterial(ctx echo.Context) error {
	var nm material.NewMaterial
	notify := checked(ctx, "notify")

	upload, closeUpload, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeUpload()

	err = bindForm(ctx, &nm)
	if err == nil {
		err = nm.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.MaterialSvc)
	}
	if err == nil && nm.Type == material.TypeFile && upload == nil {
		err = core.NewFieldValidationError("file", "a file is required for file materials")
	}
	var mat material.Material
	if err == nil {
		mat, err = cons.deps.MaterialSvc.Create(ctx.Request().Context(), nm, upload)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "creating material")
		}
		return cons.renderMaterialForm(ctx, http.StatusBadRequest, "Create Material", newMaterialForm(0, nm, notify), errs)
	}

	msg := "Material created successfully."
	if notify {
		msg += cons.notifyNewMaterial(ctx, mat)
	}
	return redirect(ctx, flashSuccess, msg, "/materials")
}

// notifyNewMaterial pushes the material to the parents of its class and returns a flash suffix.
// Push failures are logged, they do not fail the request.
func (cons *Console) notifyNewMaterial(ctx echo.Context, mat material.Material) string {
	sent, err := cons.deps.NotificationSvc.SendNewMaterial(ctx.Request().Context(), mat.ID)
	if err != nil {
		cons.deps.Logger.Error("notifying new material", errors.Wrap(err, "notifying new material"), contextAdmin(ctx))
		return " Parents could not be notified."
	}
	if !sent {
		return " No parent device to notify."
	}
	return " Parents notified."
}

func (cons *Console) getMaterial(ctx echo.Context) (material.Material, error) {
	id, err := idParam(ctx)
	if err != nil {
		return material.Material{}, err
	}
	mat, err := cons.deps.MaterialSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == material.ErrNotFound {
			return material.Material{}, errNotFound
		}
		return material.Material{}, errors.Wrap(err, "finding material")
	}
	return mat, nil
}

func (cons *Console) editMaterialPage(ctx echo.Context) error {
	mat, err := cons.getMaterial(ctx)
	if err != nil {
		return err
	}
	form := materialForm{
		ID:         mat.ID,
		Title:      mat.Title,
		Type:       mat.Type,
		SubjectID:  mat.SubjectID,
		VideoURL:   mat.VideoURL.String,
		FileURL:    mat.FileURL.String,
		OrderIndex: mat.OrderIndex,
	}
	return cons.renderMaterialForm(ctx, http.StatusOK, "Edit Material", form, nil)
}

func (cons *Console) editMaterial(ctx echo.Context) error {
	mat, err := cons.getMaterial(ctx)
	if err != nil {
		return err
	}
	notify := checked(ctx, "notify")

	upload, closeUpload, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeUpload()

	var nm material.NewMaterial
	err = bindForm(ctx, &nm)
	if err == nil {
		err = nm.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.MaterialSvc)
	}
	if err == nil && nm.Type == material.TypeFile && upload == nil && !mat.FileURL.Valid {
		err = core.NewFieldValidationError("file", "a file is required for file materials")
	}
	var updated material.Material
	if err == nil {
		updated, err = cons.deps.MaterialSvc.Update(ctx.Request().Context(), mat, nm, upload)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "updating material")
		}
		form := newMaterialForm(mat.ID, nm, notify)
		form.FileURL = mat.FileURL.String
		return cons.renderMaterialForm(ctx, http.StatusBadRequest, "Edit Material", form, errs)
	}

	msg := "Material updated successfully."
	if notify {
		msg += cons.notifyNewMaterial(ctx, updated)
	}
	return redirect(ctx, flashSuccess, msg, "/materials")
}

func (cons *Console) deleteMaterial(ctx echo.Context) error {
	mat, err := cons.getMaterial(ctx)
	if err != nil {
		return err
	}
	if err := cons.deps.MaterialSvc.Delete(ctx.Request().Context(), mat); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return redirect(ctx, flashSuccess, "Material deleted successfully.", "/materials")
}
