package console_test

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/notification"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
	emailsvc "github.com/trezcool/kia/services/email"
	"github.com/trezcool/kia/services/report"
	testutil "github.com/trezcool/kia/tests"
)

func TestConsole_users(t *testing.T) {
	app := testutil.NewApp(t)
	admin, b := loggedIn(t, app)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	t.Run("list defaults to parents", func(t *testing.T) {
		rec := b.get("/admin/users")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), leila.Email)
		assert.NotContains(t, rec.Body.String(), admin.Email)

		rec = b.get("/admin/users?role=all")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), admin.Email)
	})

	t.Run("create parent", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := b.post("/admin/users/create", url.Values{
			"email":            {"Omar@Kia.test"},
			"full_name":        {" Omar Saleh "},
			"role":             {user.RoleParent},
			"password":         {testutil.Password},
			"password_confirm": {testutil.Password},
			"is_active":        {"true"},
		})
		b.requireRedirect(rec, "/admin/users", "User created successfully.")

		omar, err := app.UserSvc.GetByEmail(ctx(), "omar@kia.test")
		require.NoError(t, err)
		assert.Equal(t, "Omar Saleh", omar.FullName)
		assert.True(t, omar.IsActive)
		assert.True(t, omar.IsParent())

		msg, ok := emailsvc.LastSentMessage()
		require.True(t, ok)
		assert.Equal(t, "omar@kia.test", msg.To[0].Address)
		assert.Equal(t, "welcome", msg.TemplateName)
	})

	t.Run("create inactive admin", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := b.post("/admin/users/create", url.Values{
			"email":            {"deputy@kia.test"},
			"full_name":        {"Deputy Head"},
			"role":             {user.RoleAdmin},
			"password":         {testutil.Password},
			"password_confirm": {testutil.Password},
		})
		b.requireRedirect(rec, "/admin/users", "User created successfully.")

		deputy, err := app.UserSvc.GetByEmail(ctx(), "deputy@kia.test")
		require.NoError(t, err)
		assert.False(t, deputy.IsActive)
		assert.True(t, deputy.IsAdmin())

		_, ok := emailsvc.LastSentMessage()
		assert.False(t, ok)
	})

	t.Run("create with a taken email", func(t *testing.T) {
		rec := b.post("/admin/users/create", url.Values{
			"email":            {leila.Email},
			"full_name":        {"Leila Bis"},
			"password":         {testutil.Password},
			"password_confirm": {testutil.Password},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "a user with this email already exists")
	})

	t.Run("edit", func(t *testing.T) {
		rec := b.post("/admin/users/"+strconv.Itoa(leila.ID)+"/edit", url.Values{
			"email":     {leila.Email},
			"full_name": {"Leila H."},
			"phone":     {"+971501234567"},
		})
		b.requireRedirect(rec, "/admin/users", "User updated successfully.")

		usr, err := app.UserSvc.GetByID(ctx(), leila.ID)
		require.NoError(t, err)
		assert.Equal(t, "Leila H.", usr.FullName)
		assert.False(t, usr.IsActive)
	})

	t.Run("cannot delete self", func(t *testing.T) {
		rec := b.post("/admin/users/"+strconv.Itoa(admin.ID)+"/delete", nil)
		b.requireRedirect(rec, "/admin/users", "You cannot delete your own account.")

		_, err := app.UserSvc.GetByID(ctx(), admin.ID)
		assert.NoError(t, err)
	})

	t.Run("delete parent and children", func(t *testing.T) {
		amira := app.CreateStudent(t, "Amira Haddad", leila.ID, 0)

		rec := b.post("/admin/users/"+strconv.Itoa(leila.ID)+"/delete", nil)
		b.requireRedirect(rec, "/admin/users", "User deleted successfully.")

		_, err := app.UserSvc.GetByID(ctx(), leila.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		_, err = app.StudentSvc.GetByID(ctx(), amira.ID)
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})
}

func TestConsole_classes(t *testing.T) {
	app := testutil.NewApp(t)
	_, b := loggedIn(t, app)

	rec := b.post("/admin/classes/create", url.Values{"name": {"Grade 1"}, "description": {"First grade"}})
	b.requireRedirect(rec, "/admin/classes", "Class created successfully.")

	classes, err := app.ClasseSvc.Query(ctx(), nil)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	grade1 := classes[0]
	assert.Equal(t, "First grade", grade1.Description)

	rec = b.post("/admin/classes/create", url.Values{"name": {" "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.post("/admin/classes/"+strconv.Itoa(grade1.ID)+"/edit", url.Values{"name": {"Grade One"}})
	b.requireRedirect(rec, "/admin/classes", "Class updated successfully.")
	grade1, err = app.ClasseSvc.GetByID(ctx(), grade1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grade One", grade1.Name)

	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)
	maths := app.CreateSubject(t, "Maths", grade1.ID)
	video := app.CreateVideo(t, "Numbers", maths.ID, 1)

	rec = b.post("/admin/classes/"+strconv.Itoa(grade1.ID)+"/delete", nil)
	b.requireRedirect(rec, "/admin/classes", "Class deleted successfully.")

	_, err = app.ClasseSvc.GetByID(ctx(), grade1.ID)
	assert.Equal(t, classe.ErrNotFound, errors.Cause(err))
	_, err = app.SubjectSvc.GetByID(ctx(), maths.ID)
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))
	_, err = app.MaterialSvc.GetByID(ctx(), video.ID)
	assert.Equal(t, material.ErrNotFound, errors.Cause(err))

	amira, err = app.StudentSvc.GetByID(ctx(), amira.ID)
	require.NoError(t, err)
	assert.False(t, amira.ClassID.Valid)
}

func TestConsole_students(t *testing.T) {
	app := testutil.NewApp(t)
	_, b := loggedIn(t, app)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	grade1 := app.CreateClasse(t, "Grade 1")

	t.Run("create with a profile image", func(t *testing.T) {
		rec := b.postMultipart("/admin/students/create", url.Values{
			"full_name":     {"Amira Haddad"},
			"date_of_birth": {"2018-04-12"},
			"parent_id":     {strconv.Itoa(leila.ID)},
			"class_id":      {strconv.Itoa(grade1.ID)},
		}, upload{field: "profile_image", filename: "amira.png", content: []byte("png")})
		b.requireRedirect(rec, "/admin/students", "Student created successfully.")

		students, err := app.StudentSvc.Query(ctx(), &student.QueryFilter{ParentID: leila.ID}, nil)
		require.NoError(t, err)
		require.Len(t, students, 1)
		amira := students[0]
		assert.Equal(t, grade1.ID, amira.ClassID.Int)
		assert.Equal(t, "2018-04-12", amira.DateOfBirth.String())
		require.True(t, amira.ProfileImageURL.Valid)

		rec = b.get(amira.ProfileImageURL.String)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "png", rec.Body.String())
	})

	t.Run("create without a parent", func(t *testing.T) {
		rec := b.post("/admin/students/create", url.Values{"full_name": {"Nobody"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reject non image", func(t *testing.T) {
		yusuf := app.CreateStudent(t, "Yusuf Haddad", leila.ID, 0)
		rec := b.postMultipart("/admin/students/"+strconv.Itoa(yusuf.ID)+"/image", nil,
			upload{field: "profile_image", filename: "yusuf.exe", content: []byte("exe")})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.NotEqual(t, "Profile image updated successfully.", b.flash())

		rec = b.postMultipart("/admin/students/"+strconv.Itoa(yusuf.ID)+"/image", nil,
			upload{field: "profile_image", filename: "yusuf.jpg", content: []byte("jpg")})
		b.requireRedirect(rec, "/admin/students", "Profile image updated successfully.")
	})

	t.Run("import", func(t *testing.T) {
		f := excelize.NewFile()
		rows := [][]interface{}{
			{"Full Name", "Parent Email", "Class", "Date of Birth (YYYY-MM-DD)"},
			{"Sami Haddad", leila.Email, grade1.Name, "2017-09-01"},
			{"Ghost Child", "ghost@kia.test", "", ""},
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
		}
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)

		rec := b.postMultipart("/admin/students/import", nil,
			upload{field: "file", filename: "students.xlsx", content: buf.Bytes()})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "1 students created")
		assert.Contains(t, body, "Sami Haddad")
		assert.Contains(t, body, "1 rows rejected")

		n, err := app.StudentSvc.Count(ctx(), &student.QueryFilter{ClassID: grade1.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("import template", func(t *testing.T) {
		rec := b.get("/admin/students/import/template")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "students.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetList()[0])
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, report.StudentImportHeaders, rows[0])
	})
}

func TestConsole_materials(t *testing.T) {
	app := testutil.NewApp(t)
	_, b := loggedIn(t, app)
	leila := app.SetFCMToken(t, app.CreateParent(t, "Leila Haddad", "leila@kia.test"), "device-1")
	grade1 := app.CreateClasse(t, "Grade 1")
	app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)
	maths := app.CreateSubject(t, "Maths", grade1.ID)

	t.Run("file required", func(t *testing.T) {
		rec := b.postMultipart("/admin/materials/create", url.Values{
			"title":      {"Worksheet"},
			"type":       {material.TypeFile},
			"subject_id": {strconv.Itoa(maths.ID)},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "a file is required for file materials")
	})

	t.Run("create and notify", func(t *testing.T) {
		rec := b.postMultipart("/admin/materials/create", url.Values{
			"title":       {"Worksheet"},
			"type":        {material.TypeFile},
			"subject_id":  {strconv.Itoa(maths.ID)},
			"order_index": {"2"},
			"notify":      {"true"},
		}, upload{field: "file", filename: "worksheet.pdf", content: []byte("%PDF")})
		b.requireRedirect(rec, "/admin/materials", "Material created successfully. Parents notified.")

		mats, err := app.MaterialSvc.Query(ctx(), &material.QueryFilter{SubjectID: maths.ID}, nil)
		require.NoError(t, err)
		require.Len(t, mats, 1)
		assert.Equal(t, 2, mats[0].OrderIndex)
		assert.True(t, mats[0].FileURL.Valid)

		sent := app.Push.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, []string{"device-1"}, sent[0].Tokens)
		assert.Equal(t, notification.TypeNewMaterial, sent[0].Data["type"])
	})

	t.Run("video without a device to notify", func(t *testing.T) {
		physics := app.CreateSubject(t, "Physics", app.CreateClasse(t, "Grade 2").ID)
		rec := b.post("/admin/materials/create", url.Values{
			"title":      {"Motion"},
			"type":       {material.TypeVideo},
			"subject_id": {strconv.Itoa(physics.ID)},
			"video_url":  {"https://videos.kia.test/motion"},
			"notify":     {"true"},
		})
		b.requireRedirect(rec, "/admin/materials", "Material created successfully. No parent device to notify.")
	})

	t.Run("delete", func(t *testing.T) {
		video := app.CreateVideo(t, "Numbers", maths.ID, 1)
		rec := b.post("/admin/materials/"+strconv.Itoa(video.ID)+"/delete", nil)
		b.requireRedirect(rec, "/admin/materials", "Material deleted successfully.")
		_, err := app.MaterialSvc.GetByID(ctx(), video.ID)
		assert.Equal(t, material.ErrNotFound, errors.Cause(err))
	})
}

func TestConsole_payments(t *testing.T) {
	app := testutil.NewApp(t)
	_, b := loggedIn(t, app)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	grade1 := app.CreateClasse(t, "Grade 1")
	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)

	rec := b.post("/admin/payments/create", url.Values{
		"student_id": {strconv.Itoa(amira.ID)},
		"amount":     {"150.5"},
		"due_date":   {"2026-05-01"},
		"notes":      {"Term 3"},
	})
	b.requireRedirect(rec, "/admin/payments", "Payment created successfully.")

	payments, err := app.PaymentSvc.Query(ctx(), &payment.QueryFilter{StudentID: amira.ID}, nil)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, 150.5, p.Amount)
	assert.False(t, p.IsPaid)

	rec = b.post("/admin/payments/create", url.Values{"student_id": {strconv.Itoa(amira.ID)}, "amount": {"-3"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pid := strconv.Itoa(p.ID)

	t.Run("remind without a device", func(t *testing.T) {
		rec := b.post("/admin/payments/"+pid+"/remind", nil)
		b.requireRedirect(rec, "/admin/payments", "The parent has no device registered for notifications.")
	})

	t.Run("remind", func(t *testing.T) {
		app.SetFCMToken(t, leila, "device-1")
		rec := b.post("/admin/payments/"+pid+"/remind", nil)
		b.requireRedirect(rec, "/admin/payments", "Payment reminder sent.")

		sent := app.Push.Sent()
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, notification.TypePaymentReminder, last.Data["type"])
		assert.Equal(t, pid, last.Data["payment_id"])
	})

	t.Run("remind due", func(t *testing.T) {
		app.Push.Reset()
		rec := b.post("/admin/payments/remind-due", nil)
		b.requireRedirect(rec, "/admin/payments", "1 payment reminders sent for payments due within 3 days.")
		assert.Len(t, app.Push.Sent(), 1)
	})

	t.Run("toggle paid", func(t *testing.T) {
		rec := b.post("/admin/payments/"+pid+"/toggle-paid", nil)
		b.requireRedirect(rec, "/admin/payments", "Payment marked as paid.")
		paid, err := app.PaymentSvc.GetByID(ctx(), p.ID)
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
		assert.False(t, paid.PaidDate.IsZero())

		rec = b.post("/admin/payments/"+pid+"/remind", nil)
		b.requireRedirect(rec, "/admin/payments", "Payment is already paid.")

		rec = b.post("/admin/payments/"+pid+"/toggle-paid", nil)
		b.requireRedirect(rec, "/admin/payments", "Payment marked as unpaid.")
	})

	t.Run("export", func(t *testing.T) {
		rec := b.get("/admin/payments/export?status=unpaid")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="payments-`))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetList()[0])
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Amira Haddad", rows[1][1])
		assert.Equal(t, "2026-05-01", rows[1][3])
	})

	t.Run("delete", func(t *testing.T) {
		rec := b.post("/admin/payments/"+pid+"/delete", nil)
		b.requireRedirect(rec, "/admin/payments", "Payment deleted successfully.")
		_, err := app.PaymentSvc.GetByID(ctx(), p.ID)
		assert.Equal(t, payment.ErrNotFound, errors.Cause(err))
	})
}

func TestConsole_attendance(t *testing.T) {
	app := testutil.NewApp(t)
	admin, b := loggedIn(t, app)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	grade1 := app.CreateClasse(t, "Grade 1")
	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)
	sami := app.CreateStudent(t, "Sami Haddad", leila.ID, grade1.ID)
	today := core.Today()
	classID := strconv.Itoa(grade1.ID)

	t.Run("roster", func(t *testing.T) {
		rec := b.get("/admin/attendance/mark?class_id=" + classID)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Amira Haddad")
		assert.Contains(t, body, `name="status_`+strconv.Itoa(sami.ID)+`"`)
	})

	t.Run("future date", func(t *testing.T) {
		rec := b.post("/admin/attendance/mark", url.Values{
			"class_id":                         {classID},
			"date":                             {today.AddDays(1).String()},
			"status_" + strconv.Itoa(amira.ID): {attendance.StatusPresent},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "attendance cannot be marked for a future date")
	})

	t.Run("mark", func(t *testing.T) {
		rec := b.post("/admin/attendance/mark", url.Values{
			"class_id":                         {classID},
			"date":                             {today.String()},
			"status_" + strconv.Itoa(amira.ID): {attendance.StatusPresent},
			"status_" + strconv.Itoa(sami.ID):  {attendance.StatusAbsent},
		})
		query := url.Values{"class_id": {classID}, "from": {today.String()}, "to": {today.String()}}
		b.requireRedirect(rec, "/admin/attendance?"+query.Encode(), "Attendance saved for 2 students.")

		marks, err := app.AttendanceSvc.StatusOn(ctx(), []int{amira.ID, sami.ID}, today)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusPresent, marks[amira.ID].Status)
		assert.Equal(t, attendance.StatusAbsent, marks[sami.ID].Status)
		assert.Equal(t, admin.ID, marks[amira.ID].MarkedBy)

		rec = b.get("/admin/attendance?class_id=" + classID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Sami Haddad")
	})

	t.Run("export", func(t *testing.T) {
		rec := b.get("/admin/attendance/export?class_id=" + classID + "&status=absent")
		require.Equal(t, http.StatusOK, rec.Code)

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetList()[0])
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Sami Haddad", rows[1][1])
		assert.Equal(t, "Absent", rows[1][3])
	})

	t.Run("delete", func(t *testing.T) {
		marks, err := app.AttendanceSvc.StatusOn(ctx(), []int{sami.ID}, today)
		require.NoError(t, err)
		id := strconv.Itoa(marks[sami.ID].ID)

		rec := b.post("/admin/attendance/"+id+"/delete", nil)
		b.requireRedirect(rec, "/admin/attendance", "Attendance record deleted successfully.")

		rec = b.post("/admin/attendance/"+id+"/delete", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
