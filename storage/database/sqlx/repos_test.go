package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
)

func TestClasseRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClasseRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	cols := []string{"id", "name", "description", "created_at", "student_count", "subject_count"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM classes c WHERE LOWER(c.name) = LOWER($1)`)).
		WithArgs("kg1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "KG1", "", now, 12, 4))
	cls, err := repo.GetClasseByName(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, "KG1", cls.Name)
	assert.Equal(t, 12, cls.StudentCount)
	assert.Equal(t, 4, cls.SubjectCount)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM classes c ORDER BY c.name ASC`)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "KG1", "", now, 0, 0).AddRow(4, "KG2", "", now, 0, 0))
	classes, err := repo.QueryClasses(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM classes WHERE id = $1`)).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, classe.ErrNotFound, repo.DeleteClasse(ctx, 8))
}

func TestStudentRepository_QueryStudents(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)
	cols := []string{
		"id", "parent_id", "parent_name", "class_id", "class_name", "full_name", "date_of_birth",
		"profile_image_url", "created_at",
	}
	dob := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.parent_id = $1 ORDER BY s.full_name ASC`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 7, "Jane", 3, "KG1", "Amira", dob, nil, time.Now()).
			AddRow(2, 7, "Jane", nil, nil, "Omar", nil, "/uploads/students/2/a.png", time.Now()))

	students, err := repo.QueryStudents(context.Background(), &student.QueryFilter{ParentID: 7}, nil)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.True(t, students[0].HasClass())
	assert.Equal(t, "KG1", students[0].ClassName.String)
	assert.Equal(t, "2020-05-01", students[0].DateOfBirth.String())
	assert.False(t, students[1].HasClass())
	assert.True(t, students[1].DateOfBirth.IsZero())
	assert.Equal(t, "/uploads/students/2/a.png", students[1].ProfileImageURL.String)
}

func TestPaymentRepository_QueryPayments(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	unpaid := false
	day, _ := core.ParseDate("2026-03-01")
	cols := []string{"id", "student_id", "student_name", "amount", "due_date", "paid_date", "is_paid", "notes", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.student_id IN ($1, $2) AND p.is_paid = $3 AND p.due_date <= $4 ORDER BY p.due_date ASC`)).
		WithArgs(1, 2, false, day.Time).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(9, 1, "Amira", []byte("1500.00"), day.Time, nil, false, "", time.Now()))

	payments, err := repo.QueryPayments(
		context.Background(),
		&payment.QueryFilter{StudentIDs: []int{1, 2}, IsPaid: &unpaid, DueTo: day},
		[]core.DBOrdering{{Field: "due_date", Ascending: true}},
	)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 1500.0, payments[0].Amount)
	assert.True(t, payments[0].PaidDate.IsZero())
}

func TestPaymentRepository_emptyIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM payments p WHERE FALSE`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	n, err := repo.CountPayments(context.Background(), &payment.QueryFilter{StudentIDs: []int{}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttendanceRepository_UpsertAttendance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)
	day, _ := core.ParseDate("2026-02-10")
	now := time.Now().UTC()
	cols := []string{
		"id", "student_id", "student_name", "class_id", "class_name", "date", "status", "marked_by",
		"marked_by_name", "created_at", "updated_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (student_id, date) DO UPDATE SET`)).
		WithArgs(1, 3, day.Time, attendance.StatusPresent, 5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance a`)).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(20, 1, "Amira", 3, "KG1", day.Time, attendance.StatusPresent, 5, "Admin", now, now))

	att, err := repo.UpsertAttendance(context.Background(), attendance.Attendance{
		StudentID: 1, ClassID: 3, Date: day, Status: attendance.StatusPresent, MarkedBy: 5,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, att.ID)
	assert.Equal(t, "Admin", att.MarkedByName)
	assert.True(t, att.Date.Equal(day))
}
