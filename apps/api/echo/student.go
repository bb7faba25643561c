package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
)

// attendanceHistoryDays is the default window of GET /students/:id/attendance.
const attendanceHistoryDays = 30

type studentApi struct {
	svc    student.Service
	subSvc subject.Service
	attSvc attendance.Service
	paySvc payment.Service
}

func registerStudentAPI(g *echo.Group, api *studentApi) {
	sg := g.Group("/students")
	sg.GET("", api.list)

	child := api.childMiddleware(errStudentNotFound)
	sg.GET("/:id", api.retrieve, child)
	sg.GET("/:id/subjects", api.subjects, child)
	sg.GET("/:id/payments", api.payments, child)
	sg.GET("/:id/attendance", api.attendance, child)
	sg.GET("/:id/attendance/today", api.attendanceToday, api.childMiddleware(errAccessDenied))
}

// childMiddleware loads the requested student into the context. foreignErr is returned when
// the student is not a child of the authenticated parent.
func (api *studentApi) childMiddleware(foreignErr error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			parent, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			id, err := idParam(ctx, "id", errStudentNotFound)
			if err != nil {
				return err
			}

			st, err := api.svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					return errStudentNotFound
				}
				return errors.Wrap(err, "finding student")
			}
			if st.ParentID != parent.ID {
				return foreignErr
			}
			ctx.Set("object", st)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (student.Student, error) {
	st, ok := ctx.Get("object").(student.Student)
	if !ok {
		return student.Student{}, errors.New("student object not found in echo.Context")
	}
	return st, nil
}

// Handlers

func (api *studentApi) list(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	children, err := api.svc.ListForParent(ctx.Request().Context(), parent.ID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}

	ids := make([]int, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	marks, err := api.attSvc.StatusOn(ctx.Request().Context(), ids, core.Today())
	if err != nil {
		return errors.Wrap(err, "querying today's attendance")
	}

	res := make([]StudentResponse, 0, len(children))
	for _, child := range children {
		status := attendance.StatusNotMarked
		if att, ok := marks[child.ID]; ok {
			status = att.Status
		}
		res = append(res, StudentResponse{Student: child, TodayAttendance: status})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) subjects(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	if !st.HasClass() {
		return errNoClass
	}

	subjects, err := api.subSvc.Query(ctx.Request().Context(), &subject.QueryFilter{ClassID: st.ClassID.Int}, nil)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *studentApi) payments(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	payments, summary, err := api.paySvc.ForStudent(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, StudentPaymentsResponse{Payments: payments, Summary: summary})
}

func (api *studentApi) attendance(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var dates DateRange
	if err := ctx.Bind(&dates); err != nil {
		return errors.Wrap(err, "binding to DateRange")
	}
	if dates.To.IsZero() {
		dates.To = core.Today()
	}
	if dates.From.IsZero() {
		dates.From = dates.To.AddDays(-attendanceHistoryDays)
	}
	if dates.From.After(dates.To.Time) {
		return core.NewFieldValidationError("from", "must be before to")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.attSvc.Query(
		ctx.Request().Context(),
		&attendance.QueryFilter{StudentID: st.ID, DateFrom: dates.From, DateTo: dates.To},
		ordering.Orderings,
	)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *studentApi) attendanceToday(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	today := core.Today()
	marks, err := api.attSvc.StatusOn(ctx.Request().Context(), []int{st.ID}, today)
	if err != nil {
		return errors.Wrap(err, "querying today's attendance")
	}
	res := TodayAttendanceResponse{StudentID: st.ID, Date: today, Status: attendance.StatusNotMarked}
	if att, ok := marks[st.ID]; ok {
		res.Status = att.Status
		markedAt := att.CreatedAt
		res.MarkedAt = &markedAt
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	StudentResponse struct {
		student.Student
		TodayAttendance string `json:"today_attendance"`
	}

	StudentPaymentsResponse struct {
		Payments []payment.Payment `json:"payments"`
		Summary  payment.Summary   `json:"summary"`
	}

	TodayAttendanceResponse struct {
		StudentID int        `json:"student_id"`
		Date      core.Date  `json:"date"`
		Status    string     `json:"status"`
		MarkedAt  *time.Time `json:"marked_at"`
	}
)
