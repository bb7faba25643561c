package student_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
	testutil "github.com/trezcool/kia/tests"
)

func TestNewStudent_Validate(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	admin := app.CreateAdmin(t, "Admin", "admin@kia.test")
	cls := app.CreateClasse(t, "Grade 1")
	tomorrow := core.Today().AddDays(1)

	tests := []struct {
		name      string
		data      student.NewStudent
		wantField string
	}{
		{name: "admin as parent", data: student.NewStudent{FullName: "Amira", ParentID: admin.ID}, wantField: "parent_id"},
		{name: "unknown parent", data: student.NewStudent{FullName: "Amira", ParentID: 999}, wantField: "parent_id"},
		{name: "unknown class", data: student.NewStudent{FullName: "Amira", ParentID: parent.ID, ClassID: 999}, wantField: "class_id"},
		{name: "born tomorrow", data: student.NewStudent{FullName: "Amira", ParentID: parent.ID, DateOfBirth: tomorrow}, wantField: "date_of_birth"},
		{name: "valid", data: student.NewStudent{FullName: " Amira ", ParentID: parent.ID, ClassID: cls.ID}},
		{name: "valid without class", data: student.NewStudent{FullName: "Amira", ParentID: parent.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, app.Validate, app.StudentSvc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.True(t, core.IsValidationError(err), "got %v", err)
			assert.Equal(t, tt.wantField, err.(*core.ValidationError).Fields[0].Field)
		})
	}
}

func TestService_GetForParent(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	omar := app.CreateParent(t, "Omar Said", "omar@kia.test")
	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, 0)
	app.CreateStudent(t, "Adam Said", omar.ID, 0)

	st, err := app.StudentSvc.GetForParent(ctx, amira.ID, leila.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leila Haddad", st.ParentName)

	_, err = app.StudentSvc.GetForParent(ctx, amira.ID, omar.ID)
	assert.Equal(t, student.ErrNotFound, err)

	children, err := app.StudentSvc.ListForParent(ctx, leila.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, amira.ID, children[0].ID)
}

func TestService_SetProfileImage(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	st := app.CreateStudent(t, "Amira Haddad", app.CreateParent(t, "Leila Haddad", "leila@kia.test").ID, 0)

	_, err := app.StudentSvc.SetProfileImage(ctx, st, core.Upload{Filename: "cv.pdf", Content: strings.NewReader("x")})
	assert.True(t, core.IsValidationError(err))

	st, err = app.StudentSvc.SetProfileImage(ctx, st, core.Upload{Filename: "me.JPG", Content: strings.NewReader("img")})
	require.NoError(t, err)
	require.True(t, st.ProfileImageURL.Valid)
	assert.True(t, strings.HasPrefix(st.ProfileImageURL.String, "/uploads/students/1/"))

	got, err := app.StudentSvc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ProfileImageURL, got.ProfileImageURL)
}

func TestService_Import(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	cls := app.CreateClasse(t, "Grade 1")

	res := app.StudentSvc.Import(ctx, []student.ImportRow{
		{Row: 2, FullName: "Amira Haddad", ParentEmail: "LEILA@kia.test", ClassName: "grade 1", DateOfBirth: "2018-05-04"},
		{Row: 3, FullName: "Karim Haddad", ParentEmail: "leila@kia.test"},
		{Row: 4, FullName: "Nobody", ParentEmail: "ghost@kia.test"},
		{Row: 5, FullName: "Lost", ParentEmail: "leila@kia.test", ClassName: "Grade 9"},
		{Row: 6, FullName: "Bad Date", ParentEmail: "leila@kia.test", DateOfBirth: "04/05/2018"},
		{Row: 7, FullName: "", ParentEmail: "leila@kia.test"},
	}, app.Validate)

	require.Len(t, res.Created, 2)
	assert.Equal(t, cls.ID, res.Created[0].ClassID.Int)
	assert.Equal(t, "2018-05-04", res.Created[0].DateOfBirth.String())
	assert.False(t, res.Created[1].ClassID.Valid)
	assert.Equal(t, parent.ID, res.Created[1].ParentID)

	rows := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		rows = append(rows, e.Row)
	}
	assert.Equal(t, []int{4, 5, 6, 7}, rows)
	assert.Contains(t, res.Errors[0].Message, "ghost@kia.test")
	assert.Contains(t, res.Errors[1].Message, "Grade 9")
}
