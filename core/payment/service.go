package payment

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")

	errInvalidStudent = "select a valid student"
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		CountPayments(ctx context.Context, filter *QueryFilter) (int, error)
		GetPayment(ctx context.Context, id int) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		DeletePayment(ctx context.Context, id int) error
	}

	Service interface {
		CheckStudent(ctx context.Context, studentID int) error
		Create(ctx context.Context, np NewPayment) (Payment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id int) (Payment, error)
		Update(ctx context.Context, p Payment, np NewPayment) (Payment, error)
		// TogglePaid flips IsPaid; PaidDate is set to today or cleared accordingly.
		TogglePaid(ctx context.Context, p Payment) (Payment, error)
		Delete(ctx context.Context, id int) error
		// ForStudent returns the student payments, latest due date first, with their Summary.
		ForStudent(ctx context.Context, studentID int) ([]Payment, Summary, error)
		SummarizeParent(ctx context.Context, children []student.Student) (ParentSummary, error)
		// DueUntil returns unpaid payments due on or before day, earliest first.
		DueUntil(ctx context.Context, day core.Date) ([]Payment, error)
	}

	service struct {
		repo  Repository
		stSvc student.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, stSvc student.Service) Service {
	return &service{repo: repo, stSvc: stSvc}
}

func (svc *service) CheckStudent(ctx context.Context, studentID int) error {
	if _, err := svc.stSvc.GetByID(ctx, studentID); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return core.NewFieldValidationError("student_id", errInvalidStudent)
		}
		return errors.Wrap(err, "finding student")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	p, err := svc.repo.CreatePayment(ctx, Payment{
		StudentID: np.StudentID,
		Amount:    np.Amount,
		DueDate:   np.DueDate,
		PaidDate:  np.PaidDate,
		IsPaid:    np.IsPaid,
		Notes:     np.Notes,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	return p, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_date", Ascending: false}}
	}
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountPayments(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *service) Update(ctx context.Context, p Payment, np NewPayment) (Payment, error) {
	p.StudentID = np.StudentID
	p.Amount = np.Amount
	p.DueDate = np.DueDate
	p.PaidDate = np.PaidDate
	p.IsPaid = np.IsPaid
	p.Notes = np.Notes
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *service) TogglePaid(ctx context.Context, p Payment) (Payment, error) {
	p.IsPaid = !p.IsPaid
	if p.IsPaid {
		p.PaidDate = core.Today()
	} else {
		p.PaidDate = core.Date{}
	}
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeletePayment(ctx, id)
}

func (svc *service) ForStudent(ctx context.Context, studentID int) ([]Payment, Summary, error) {
	payments, err := svc.Query(ctx, &QueryFilter{StudentID: studentID}, nil)
	if err != nil {
		return nil, Summary{}, errors.Wrap(err, "querying student payments")
	}
	return payments, Summarize(payments), nil
}

func (svc *service) SummarizeParent(ctx context.Context, children []student.Student) (ParentSummary, error) {
	summary := ParentSummary{ChildrenSummary: make([]ChildSummary, 0, len(children))}
	if len(children) == 0 {
		return summary, nil
	}

	ids := make([]int, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	payments, err := svc.Query(ctx, &QueryFilter{StudentIDs: ids}, nil)
	if err != nil {
		return ParentSummary{}, errors.Wrap(err, "querying children payments")
	}
	byStudent := make(map[int][]Payment, len(children))
	for _, p := range payments {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
		if !p.IsPaid {
			summary.PendingCount++
		}
	}

	for _, child := range children {
		s := Summarize(byStudent[child.ID])
		summary.TotalDue += s.TotalDue
		summary.TotalPaid += s.TotalPaid
		summary.ChildrenSummary = append(summary.ChildrenSummary, ChildSummary{
			Student:     child,
			TotalDue:    s.TotalDue,
			TotalPaid:   s.TotalPaid,
			NextPayment: s.NextPayment,
		})
	}
	return summary, nil
}

func (svc *service) DueUntil(ctx context.Context, day core.Date) ([]Payment, error) {
	unpaid := false
	return svc.Query(
		ctx,
		&QueryFilter{IsPaid: &unpaid, DueTo: day},
		[]core.DBOrdering{{Field: "due_date", Ascending: true}},
	)
}

// Summarize totals unpaid and paid amounts; NextPayment is the unpaid payment with the earliest due date.
func Summarize(payments []Payment) Summary {
	var s Summary
	unpaid := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if p.IsPaid {
			s.TotalPaid += p.Amount
		} else {
			s.TotalDue += p.Amount
			unpaid = append(unpaid, p)
		}
	}
	if len(unpaid) > 0 {
		sort.SliceStable(unpaid, func(i, j int) bool { return unpaid[i].DueDate.Before(unpaid[j].DueDate.Time) })
		next := unpaid[0]
		s.NextPayment = &next
	}
	return s
}
