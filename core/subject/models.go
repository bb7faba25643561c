package subject

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kia/core"
)

type Subject struct {
	ID            int       `json:"id"`
	ClassID       int       `json:"class_id"`
	ClassName     string    `json:"class_name"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	MaterialCount int       `json:"material_count"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewSubject contains information needed to create or modify a Subject.
type NewSubject struct {
	Name        string `json:"name" form:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" form:"description" validate:"max=2000"`
	ClassID     int    `json:"class_id" form:"class_id" validate:"required,min=1"`
}

// Validate checks ns; excludedID is the subject being modified, if any.
func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc Service, excludedID ...int) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := svc.CheckClass(ctx, ns.ClassID); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, ns.ClassID, ns.Name, excludedID...)
}

type QueryFilter struct {
	ClassID  int
	ClassIDs []int
}
