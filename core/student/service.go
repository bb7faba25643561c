package student

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")

	errInvalidParent = "select a valid parent account"
	errInvalidClass  = "select a valid class"
	errInvalidImage  = "only png, jpg and jpeg images are allowed"
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		CountStudents(ctx context.Context, filter *QueryFilter) (int, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		// DeleteStudent also deletes the student payments and attendance.
		DeleteStudent(ctx context.Context, id int) error
	}

	Service interface {
		CheckRelations(ctx context.Context, parentID, classID int) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id int) (Student, error)
		// GetForParent returns ErrNotFound when the student is not a child of parentID.
		GetForParent(ctx context.Context, id, parentID int) (Student, error)
		ListForParent(ctx context.Context, parentID int) ([]Student, error)
		Update(ctx context.Context, st Student, ns NewStudent) (Student, error)
		SetProfileImage(ctx context.Context, st Student, upload core.Upload) (Student, error)
		Delete(ctx context.Context, st Student) error
		Import(ctx context.Context, rows []ImportRow, validate *validator.Validate) ImportResult
	}

	service struct {
		repo      Repository
		usrSvc    user.Service
		clsSvc    classe.Service
		storage   core.FileStorage
		imageExts []string
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	clsSvc classe.Service,
	storage core.FileStorage,
	conf *core.Config,
) Service {
	return &service{
		repo:      repo,
		usrSvc:    usrSvc,
		clsSvc:    clsSvc,
		storage:   storage,
		imageExts: conf.Storage.ImageExtensions,
	}
}

func (svc *service) CheckRelations(ctx context.Context, parentID, classID int) error {
	parent, err := svc.usrSvc.GetByID(ctx, parentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldValidationError("parent_id", errInvalidParent)
		}
		return errors.Wrap(err, "finding parent")
	}
	if !parent.IsParent() {
		return core.NewFieldValidationError("parent_id", errInvalidParent)
	}

	if classID > 0 {
		if _, err := svc.clsSvc.GetByID(ctx, classID); err != nil {
			if errors.Cause(err) == classe.ErrNotFound {
				return core.NewFieldValidationError("class_id", errInvalidClass)
			}
			return errors.Wrap(err, "finding class")
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	st := Student{
		ParentID:    ns.ParentID,
		ClassID:     null.NewInt(ns.ClassID, ns.ClassID > 0),
		FullName:    ns.FullName,
		DateOfBirth: ns.DateOfBirth,
		CreatedAt:   time.Now().UTC(),
	}
	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "full_name", Ascending: true}}
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountStudents(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) GetForParent(ctx context.Context, id, parentID int) (Student, error) {
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st.ParentID != parentID {
		return Student{}, ErrNotFound
	}
	return st, nil
}

func (svc *service) ListForParent(ctx context.Context, parentID int) ([]Student, error) {
	return svc.Query(ctx, &QueryFilter{ParentID: parentID}, nil)
}

func (svc *service) Update(ctx context.Context, st Student, ns NewStudent) (Student, error) {
	st.FullName = ns.FullName
	st.DateOfBirth = ns.DateOfBirth
	st.ParentID = ns.ParentID
	st.ClassID = null.NewInt(ns.ClassID, ns.ClassID > 0)
	return svc.repo.UpdateStudent(ctx, st)
}

// SetProfileImage stores upload as the student picture and removes the previous one.
func (svc *service) SetProfileImage(ctx context.Context, st Student, upload core.Upload) (Student, error) {
	if !core.HasAllowedExtension(upload.Filename, svc.imageExts) {
		return Student{}, core.NewFieldValidationError("profile_image", errInvalidImage)
	}
	url, err := svc.storage.Save(ctx, fmt.Sprintf("students/%d", st.ID), upload)
	if err != nil {
		return Student{}, errors.Wrap(err, "saving profile image")
	}

	oldURL := st.ProfileImageURL
	st.ProfileImageURL = null.StringFrom(url)
	st, err = svc.repo.UpdateStudent(ctx, st)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	if oldURL.Valid && oldURL.String != "" {
		if _, err := svc.storage.Delete(ctx, oldURL.String); err != nil {
			return st, errors.Wrap(err, "deleting previous profile image")
		}
	}
	return st, nil
}

func (svc *service) Delete(ctx context.Context, st Student) error {
	if err := svc.repo.DeleteStudent(ctx, st.ID); err != nil {
		return err
	}
	if st.ProfileImageURL.Valid && st.ProfileImageURL.String != "" {
		if _, err := svc.storage.Delete(ctx, st.ProfileImageURL.String); err != nil {
			return errors.Wrap(err, "deleting profile image")
		}
	}
	return nil
}

// Import creates one student per row. Rows are resolved independently: a bad row
// is reported and skipped.
func (svc *service) Import(ctx context.Context, rows []ImportRow, validate *validator.Validate) ImportResult {
	res := ImportResult{Created: []Student{}, Errors: []ImportError{}}
	fail := func(row int, msg string) {
		res.Errors = append(res.Errors, ImportError{Row: row, Message: msg})
	}

	for _, row := range rows {
		parent, err := svc.usrSvc.GetByEmail(ctx, row.ParentEmail)
		if err != nil {
			fail(row.Row, fmt.Sprintf("parent %q not found", row.ParentEmail))
			continue
		}

		ns := NewStudent{FullName: row.FullName, ParentID: parent.ID}
		if name := core.CleanString(row.ClassName); name != "" {
			cls, err := svc.clsSvc.GetByName(ctx, name)
			if err != nil {
				fail(row.Row, fmt.Sprintf("class %q not found", name))
				continue
			}
			ns.ClassID = cls.ID
		}
		if ns.DateOfBirth, err = core.ParseDate(row.DateOfBirth); err != nil {
			fail(row.Row, err.Error())
			continue
		}

		if err := ns.Validate(ctx, validate, svc); err != nil {
			fail(row.Row, errorMessage(err))
			continue
		}
		st, err := svc.Create(ctx, ns)
		if err != nil {
			fail(row.Row, errorMessage(err))
			continue
		}
		res.Created = append(res.Created, st)
	}
	return res
}

func errorMessage(err error) string {
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		if len(e) > 0 {
			return fmt.Sprintf("%s: invalid value (%s)", e[0].Field(), e[0].Tag())
		}
	case *core.ValidationError:
		return e.Error()
	}
	return err.Error()
}
