package console

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/services/report"
)

// statusField prefixes the roster form field of each student: "status_<id>".
const statusField = "status_"

func registerAttendance(g *echo.Group, cons *Console) {
	ag := g.Group("/attendance")
	ag.GET("", cons.listAttendance)
	ag.GET("/export", cons.exportAttendance)
	ag.GET("/mark", cons.rosterPage)
	ag.POST("/mark", cons.markAttendance)
	ag.POST("/:id/delete", cons.deleteAttendance)
}

type (
	attendanceList struct {
		Records []attendance.Attendance
		Classes []classe.Classe
		ClassID int
		From    core.Date
		To      core.Date
		Status  string
	}

	rosterEntry struct {
		Student student.Student
		Status  string
	}

	roster struct {
		Classes []classe.Classe
		ClassID int
		Date    core.Date
		Entries []rosterEntry
	}
)

// attendanceFilter reads "class_id", "status" and the "from"/"to" range (today by default).
func attendanceFilter(ctx echo.Context) (*attendance.QueryFilter, error) {
	filter := &attendance.QueryFilter{ClassID: queryInt(ctx, "class_id")}
	switch status := ctx.QueryParam("status"); status {
	case attendance.StatusPresent, attendance.StatusAbsent:
		filter.Status = status
	}

	var err error
	if filter.DateFrom, err = core.ParseDate(ctx.QueryParam("from")); err != nil {
		return nil, core.NewFieldValidationError("from", err.Error())
	}
	if filter.DateTo, err = core.ParseDate(ctx.QueryParam("to")); err != nil {
		return nil, core.NewFieldValidationError("to", err.Error())
	}
	if filter.DateFrom.IsZero() && filter.DateTo.IsZero() {
		filter.DateFrom, filter.DateTo = core.Today(), core.Today()
	}
	return filter, nil
}

func (cons *Console) listAttendance(ctx echo.Context) error {
	filter, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	records, err := cons.deps.AttendanceSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	data := attendanceList{
		Records: records,
		Classes: classes,
		ClassID: filter.ClassID,
		From:    filter.DateFrom,
		To:      filter.DateTo,
		Status:  filter.Status,
	}
	return cons.render(ctx, http.StatusOK, "attendance", "Attendance", nil, data, nil)
}

func (cons *Console) exportAttendance(ctx echo.Context) error {
	filter, err := attendanceFilter(ctx)
	if err != nil {
		return err
	}
	records, err := cons.deps.AttendanceSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}

	var buf bytes.Buffer
	if err := report.WriteAttendance(&buf, records); err != nil {
		return errors.Wrap(err, "writing attendance report")
	}
	fname := fmt.Sprintf("attendance-%s.xlsx", core.Today())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fname))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// buildRoster lists the students of classID with their status on day.
func (cons *Console) buildRoster(ctx echo.Context, classID int, day core.Date) (roster, error) {
	classes, err := cons.deps.ClasseSvc.Query(ctx.Request().Context(), nil)
	if err != nil {
		return roster{}, errors.Wrap(err, "querying classes")
	}
	res := roster{Classes: classes, ClassID: classID, Date: day}
	if classID == 0 {
		return res, nil
	}

	students, err := cons.deps.StudentSvc.Query(ctx.Request().Context(), &student.QueryFilter{ClassID: classID}, nil)
	if err != nil {
		return roster{}, errors.Wrap(err, "querying class students")
	}
	ids := make([]int, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	marks, err := cons.deps.AttendanceSvc.StatusOn(ctx.Request().Context(), ids, day)
	if err != nil {
		return roster{}, errors.Wrap(err, "querying attendance")
	}
	for _, st := range students {
		status := attendance.StatusNotMarked
		if att, ok := marks[st.ID]; ok {
			status = att.Status
		}
		res.Entries = append(res.Entries, rosterEntry{Student: st, Status: status})
	}
	return res, nil
}

func (cons *Console) rosterPage(ctx echo.Context) error {
	day, err := core.ParseDate(ctx.QueryParam("date"))
	if err != nil {
		return core.NewFieldValidationError("date", err.Error())
	}
	if day.IsZero() {
		day = core.Today()
	}
	data, err := cons.buildRoster(ctx, queryInt(ctx, "class_id"), day)
	if err != nil {
		return err
	}
	return cons.render(ctx, http.StatusOK, "attendance_mark", "Mark Attendance", nil, data, nil)
}

func (cons *Console) markAttendance(ctx echo.Context) error {
	classID, _ := strconv.Atoi(ctx.FormValue("class_id"))
	day, err := core.ParseDate(ctx.FormValue("date"))
	if err != nil {
		return core.NewFieldValidationError("date", err.Error())
	}
	data, err := cons.buildRoster(ctx, classID, day)
	if err != nil {
		return err
	}

	ma := attendance.MarkAttendance{Date: day}
	for _, entry := range data.Entries {
		if status := ctx.FormValue(statusField + strconv.Itoa(entry.Student.ID)); status != "" {
			ma.Marks = append(ma.Marks, attendance.Mark{StudentID: entry.Student.ID, Status: status})
		}
	}

	err = ma.Validate(cons.deps.Validate)
	var records []attendance.Attendance
	if err == nil {
		records, err = cons.deps.AttendanceSvc.Mark(ctx.Request().Context(), contextAdmin(ctx), ma)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return errors.Wrap(err, "marking attendance")
		}
		if day.IsZero() {
			data.Date = core.Today()
		}
		return cons.render(ctx, http.StatusBadRequest, "attendance_mark", "Mark Attendance", nil, data, errs)
	}

	query := url.Values{}
	query.Set("class_id", strconv.Itoa(classID))
	query.Set("from", day.String())
	query.Set("to", day.String())
	msg := fmt.Sprintf("Attendance saved for %d students.", len(records))
	return redirect(ctx, flashSuccess, msg, "/attendance?"+query.Encode())
}

func (cons *Console) deleteAttendance(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := cons.deps.AttendanceSvc.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errNotFound
		}
		return errors.Wrap(err, "deleting attendance")
	}
	return redirect(ctx, flashSuccess, "Attendance record deleted successfully.", "/attendance")
}
