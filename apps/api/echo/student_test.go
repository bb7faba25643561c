package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kia/apps/api/echo"
	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/subject"
)

func Test_studentApi(t *testing.T) {
	app, srv := setup(t)
	ctx := context.Background()
	admin := app.CreateAdmin(t, "Admin", "admin@kia.test")
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	omar := app.CreateParent(t, "Omar Said", "omar@kia.test")
	grade1 := app.CreateClasse(t, "Grade 1")

	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)
	karim := app.CreateStudent(t, "Karim Haddad", leila.ID, 0)
	adam := app.CreateStudent(t, "Adam Said", omar.ID, grade1.ID)

	maths := app.CreateSubject(t, "Maths", grade1.ID)
	arabic := app.CreateSubject(t, "Arabic", grade1.ID)
	today := core.Today()
	app.MarkAttendance(t, amira, today, attendance.StatusPresent, admin.ID)
	app.MarkAttendance(t, amira, today.AddDays(-1), attendance.StatusAbsent, admin.ID)
	app.MarkAttendance(t, amira, today.AddDays(-40), attendance.StatusAbsent, admin.ID)

	token := accessToken(t, app, leila)
	path := func(id int, suffix string) string {
		return "/api/students/" + strconv.Itoa(id) + suffix
	}
	subjects, err := app.SubjectSvc.Query(ctx, &subject.QueryFilter{ClassID: grade1.ID}, nil)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, arabic.ID, subjects[0].ID)
	assert.Equal(t, maths.ID, subjects[1].ID)

	tests := []httpTest{
		{name: "Auth required", path: "/api/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Parents only", path: "/api/students", token: accessToken(t, app, admin),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Access denied. Parents only."}),
		},
		{
			name: "children", path: "/api/students", token: token,
			wantData: marchallList(t,
				echoapi.StudentResponse{Student: amira, TodayAttendance: attendance.StatusPresent},
				echoapi.StudentResponse{Student: karim, TodayAttendance: attendance.StatusNotMarked},
			),
		},
		{name: "no children", path: "/api/students", token: accessToken(t, app, app.CreateParent(t, "New", "new@kia.test")), wantData: marchallList(t)},
		{name: "child", path: path(amira.ID, ""), token: token, wantData: marchallObj(t, amira)},
		{
			name: "other parent's child", path: path(adam.ID, ""), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Student not found"}),
		},
		{
			name: "unknown child", path: path(999, ""), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Student not found"}),
		},
		{
			name: "invalid id", path: "/api/students/abc", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Student not found"}),
		},
		{name: "subjects", path: path(amira.ID, "/subjects"), token: token, wantData: marchallList(t, subjects[0], subjects[1])},
		{
			name: "subjects without class", path: path(karim.ID, "/subjects"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Student is not assigned to a class"}),
		},
		{
			name: "today's attendance of other parent's child", path: path(adam.ID, "/attendance/today"), token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Access denied"}),
		},
		{
			name: "today's attendance not marked", path: path(karim.ID, "/attendance/today"), token: token,
			wantData: marchallObj(t, echoapi.TodayAttendanceResponse{StudentID: karim.ID, Date: today, Status: attendance.StatusNotMarked}),
		},
		{
			name: "invalid attendance range", path: path(amira.ID, "/attendance?from=2026-13-01"), token: token,
			wantCode: http.StatusBadRequest,
		},
	}
	runTests(t, srv, tests)

	t.Run("today's attendance marked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path(amira.ID, "/attendance/today"), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.TodayAttendanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, attendance.StatusPresent, res.Status)
		assert.Equal(t, today.String(), res.Date.String())
		assert.NotNil(t, res.MarkedAt)
	})

	t.Run("attendance history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path(amira.ID, "/attendance"), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var records []attendance.Attendance
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 2, "last 30 days only")
		assert.Equal(t, attendance.StatusPresent, records[0].Status)
		assert.Equal(t, attendance.StatusAbsent, records[1].Status)

		from := today.AddDays(-60).String()
		req, rec = newAuthRequest(http.MethodGet, path(amira.ID, "/attendance?ordering=date&from="+from), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 3)
		assert.Equal(t, today.AddDays(-40).String(), records[0].Date.String())
	})

	t.Run("payments", func(t *testing.T) {
		app.CreatePayment(t, amira.ID, 100, "2026-03-01", false)
		app.CreatePayment(t, amira.ID, 40, "2026-01-01", true)
		payments, summary, err := app.PaymentSvc.ForStudent(ctx, amira.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)

		req, rec := newAuthRequest(http.MethodGet, path(amira.ID, "/payments"), token)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantData: marchallObj(t, echoapi.StudentPaymentsResponse{Payments: payments, Summary: summary}),
		}, rec)
		assert.Equal(t, 100.0, summary.TotalDue)
		assert.Equal(t, 40.0, summary.TotalPaid)

		req, rec = newAuthRequest(http.MethodGet, path(karim.ID, "/payments"), token)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantData: marchallObj(t, echoapi.StudentPaymentsResponse{Payments: []payment.Payment{}}),
		}, rec)
	})
}
