package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kia/core"
)

// Statuses
const (
	StatusPresent   = "present"
	StatusAbsent    = "absent"
	StatusNotMarked = "not_marked" // reported when no record exists for the day
)

type Attendance struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	StudentName  string    `json:"student_name"`
	ClassID      int       `json:"class_id"`
	ClassName    string    `json:"class_name"`
	Date         core.Date `json:"date"`
	Status       string    `json:"status"`
	MarkedBy     int       `json:"marked_by"`
	MarkedByName string    `json:"marked_by_name"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Mark is the status of one student.
type Mark struct {
	StudentID int    `json:"student_id" validate:"required,min=1"`
	Status    string `json:"status" validate:"required,oneof=present absent"`
}

// MarkAttendance records the attendance of several students on one day.
type MarkAttendance struct {
	Date  core.Date `json:"date" validate:"required"`
	Marks []Mark    `json:"marks" validate:"required,min=1,dive"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	for i := range ma.Marks {
		ma.Marks[i].Status = core.CleanString(ma.Marks[i].Status, true /* lower */)
	}
	if err := validate.Struct(ma); err != nil {
		return err
	}
	if ma.Date.After(core.Today().Time) {
		return core.NewFieldValidationError("date", "attendance cannot be marked for a future date")
	}
	return nil
}

type QueryFilter struct {
	StudentID  int
	StudentIDs []int
	ClassID    int
	Status     string
	Date       core.Date
	DateFrom   core.Date
	DateTo     core.Date
}
