package material

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
)

// Material types
const (
	TypeFile  = "file"
	TypeVideo = "video"
)

type Material struct {
	ID          int         `json:"id"`
	SubjectID   int         `json:"subject_id"`
	SubjectName string      `json:"subject_name"`
	Title       string      `json:"title"`
	Type        string      `json:"type"`
	FileURL     null.String `json:"file_url"`
	VideoURL    null.String `json:"video_url"`
	OrderIndex  int         `json:"order_index"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// NewMaterial contains information needed to create or modify a Material.
// The file of a TypeFile material is uploaded separately.
type NewMaterial struct {
	Title      string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Type       string `json:"type" form:"type" validate:"required,oneof=file video"`
	SubjectID  int    `json:"subject_id" form:"subject_id" validate:"required,min=1"`
	VideoURL   string `json:"video_url" form:"video_url" validate:"omitempty,url,max=500"`
	OrderIndex int    `json:"order_index" form:"order_index" validate:"min=0"`
}

func (nm *NewMaterial) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Type = core.CleanString(nm.Type, true /* lower */)
	nm.VideoURL = core.CleanString(nm.VideoURL)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.Type == TypeVideo && nm.VideoURL == "" {
		return core.NewFieldValidationError("video_url", "a video URL is required for video materials")
	}
	return svc.CheckSubject(ctx, nm.SubjectID)
}

type QueryFilter struct {
	SubjectID  int
	SubjectIDs []int
}
