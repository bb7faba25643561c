package payment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
)

type Payment struct {
	ID          int       `json:"id"`
	StudentID   int       `json:"student_id"`
	StudentName string    `json:"student_name"`
	Amount      float64   `json:"amount"`
	DueDate     core.Date `json:"due_date"`
	PaidDate    core.Date `json:"paid_date"`
	IsPaid      bool      `json:"is_paid"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// IsOverdue reports whether an unpaid payment is past its due date on day.
func (p Payment) IsOverdue(day core.Date) bool {
	return !p.IsPaid && p.DueDate.Before(day.Time)
}

// NewPayment contains information needed to create or modify a Payment.
type NewPayment struct {
	StudentID int       `json:"student_id" form:"student_id" validate:"required,min=1"`
	Amount    float64   `json:"amount" form:"amount" validate:"required,gt=0"`
	DueDate   core.Date `json:"due_date" form:"due_date" validate:"required"`
	PaidDate  core.Date `json:"paid_date" form:"paid_date"`
	IsPaid    bool      `json:"is_paid" form:"is_paid"`
	Notes     string    `json:"notes" form:"notes" validate:"max=2000"`
}

func (np *NewPayment) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	np.Notes = core.CleanString(np.Notes)
	if !np.IsPaid {
		np.PaidDate = core.Date{}
	} else if np.PaidDate.IsZero() {
		np.PaidDate = core.Today()
	}

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckStudent(ctx, np.StudentID)
}

type QueryFilter struct {
	StudentID  int
	StudentIDs []int
	IsPaid     *bool
	DueFrom    core.Date
	DueTo      core.Date
}

// Summary aggregates the payments of one student.
type Summary struct {
	TotalDue    float64  `json:"total_due"`
	TotalPaid   float64  `json:"total_paid"`
	NextPayment *Payment `json:"next_payment"`
}

// ChildSummary is the payment Summary of one child of a parent.
type ChildSummary struct {
	Student     student.Student `json:"student"`
	TotalDue    float64         `json:"total_due"`
	TotalPaid   float64         `json:"total_paid"`
	NextPayment *Payment        `json:"next_payment"`
}

// ParentSummary aggregates the payments of every child of a parent.
type ParentSummary struct {
	TotalDue        float64        `json:"total_due"`
	TotalPaid       float64        `json:"total_paid"`
	PendingCount    int            `json:"pending_count"`
	ChildrenSummary []ChildSummary `json:"children_summary"`
}
