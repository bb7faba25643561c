package classe

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kia/core"
)

type Classe struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StudentCount int       `json:"student_count"`
	SubjectCount int       `json:"subject_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewClasse contains information needed to create or modify a Classe.
type NewClasse struct {
	Name        string `json:"name" form:"name" validate:"required,notblank,max=50"`
	Description string `json:"description" form:"description" validate:"max=2000"`
}

// Validate checks nc; excludedID is the class being modified, if any.
func (nc *NewClasse) Validate(ctx context.Context, validate *validator.Validate, svc Service, excludedID ...int) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, nc.Name, excludedID...)
}
