package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
)

type Student struct {
	ID              int         `json:"id"`
	ParentID        int         `json:"parent_id"`
	ParentName      string      `json:"parent_name"`
	ClassID         null.Int    `json:"class_id"`
	ClassName       null.String `json:"class_name"`
	FullName        string      `json:"full_name"`
	DateOfBirth     core.Date   `json:"date_of_birth"`
	ProfileImageURL null.String `json:"profile_image_url"`
	CreatedAt       time.Time   `json:"created_at"` // UTC
}

// HasClass reports whether the student is assigned to a class.
func (s Student) HasClass() bool {
	return s.ClassID.Valid && s.ClassID.Int > 0
}

// NewStudent contains information needed to create or modify a Student.
// A zero ClassID leaves the student without a class.
type NewStudent struct {
	FullName    string    `json:"full_name" form:"full_name" validate:"required,notblank,max=100"`
	DateOfBirth core.Date `json:"date_of_birth" form:"date_of_birth"`
	ParentID    int       `json:"parent_id" form:"parent_id" validate:"required,min=1"`
	ClassID     int       `json:"class_id" form:"class_id" validate:"min=0"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.FullName = core.CleanString(ns.FullName)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.DateOfBirth.IsZero() && ns.DateOfBirth.After(core.Today().Time) {
		return core.NewFieldValidationError("date_of_birth", "date of birth cannot be in the future")
	}
	return svc.CheckRelations(ctx, ns.ParentID, ns.ClassID)
}

type QueryFilter struct {
	Search   string
	ParentID int
	ClassID  int
	IDs      []int
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// ImportRow is one spreadsheet line of a bulk student import.
type ImportRow struct {
	Row         int
	FullName    string
	ParentEmail string
	ClassName   string
	DateOfBirth string
}

type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created []Student     `json:"created"`
	Errors  []ImportError `json:"errors"`
}
