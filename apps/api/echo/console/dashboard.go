package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/user"
)

const dashboardListSize = 5

type (
	dashboardStats struct {
		Parents         int
		Students        int
		Classes         int
		Subjects        int
		PendingPayments int
		PresentToday    int
		AbsentToday     int
	}

	dashboardData struct {
		Stats            dashboardStats
		Today            core.Date
		RecentStudents   []student.Student
		UpcomingPayments []payment.Payment
	}
)

func (cons *Console) dashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	today := core.Today()
	unpaid := false
	data := dashboardData{Today: today}

	var err error
	if data.Stats.Parents, err = cons.deps.UserSvc.Count(rctx, &user.QueryFilter{Role: user.RoleParent}); err != nil {
		return errors.Wrap(err, "counting parents")
	}
	if data.Stats.Students, err = cons.deps.StudentSvc.Count(rctx, nil); err != nil {
		return errors.Wrap(err, "counting students")
	}
	if data.Stats.Classes, err = cons.deps.ClasseSvc.Count(rctx); err != nil {
		return errors.Wrap(err, "counting classes")
	}
	if data.Stats.Subjects, err = cons.deps.SubjectSvc.Count(rctx, nil); err != nil {
		return errors.Wrap(err, "counting subjects")
	}
	if data.Stats.PendingPayments, err = cons.deps.PaymentSvc.Count(rctx, &payment.QueryFilter{IsPaid: &unpaid}); err != nil {
		return errors.Wrap(err, "counting pending payments")
	}
	data.Stats.PresentToday, err = cons.deps.AttendanceSvc.Count(
		rctx, &attendance.QueryFilter{Date: today, Status: attendance.StatusPresent})
	if err != nil {
		return errors.Wrap(err, "counting present students")
	}
	data.Stats.AbsentToday, err = cons.deps.AttendanceSvc.Count(
		rctx, &attendance.QueryFilter{Date: today, Status: attendance.StatusAbsent})
	if err != nil {
		return errors.Wrap(err, "counting absent students")
	}

	students, err := cons.deps.StudentSvc.Query(rctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: false}})
	if err != nil {
		return errors.Wrap(err, "querying recent students")
	}
	data.RecentStudents = head(students, dashboardListSize)

	payments, err := cons.deps.PaymentSvc.Query(
		rctx, &payment.QueryFilter{IsPaid: &unpaid}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying upcoming payments")
	}
	data.UpcomingPayments = head(payments, dashboardListSize)

	return cons.render(ctx, http.StatusOK, "dashboard", "Dashboard", nil, data, nil)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
