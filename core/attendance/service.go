package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/user"
)

var ErrNotFound = errors.New("attendance not found")

type (
	Repository interface {
		// UpsertAttendance inserts a record or updates the one of the same student and date.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		QueryAttendance(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error)
		CountAttendance(ctx context.Context, filter *QueryFilter) (int, error)
		GetAttendance(ctx context.Context, id int) (Attendance, error)
		DeleteAttendance(ctx context.Context, id int) error
	}

	Service interface {
		// Mark records every mark against the student's current class.
		Mark(ctx context.Context, markedBy user.User, data MarkAttendance) ([]Attendance, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id int) (Attendance, error)
		// StatusOn maps student IDs to their attendance record on day; unmarked students are absent from the map.
		StatusOn(ctx context.Context, studentIDs []int, day core.Date) (map[int]Attendance, error)
		Delete(ctx context.Context, id int) error
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

func (svc *service) Mark(ctx context.Context, markedBy user.User, data MarkAttendance) ([]Attendance, error) {
	students := make([]student.Student, 0, len(data.Marks))
	for _, m := range data.Marks {
		st, err := svc.stSvc.GetByID(ctx, m.StudentID)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return nil, core.NewFieldValidationError("student_id", fmt.Sprintf("student %d not found", m.StudentID))
			}
			return nil, errors.Wrap(err, "finding student")
		}
		if !st.HasClass() {
			return nil, core.NewFieldValidationError("student_id", fmt.Sprintf("%s is not assigned to a class", st.FullName))
		}
		students = append(students, st)
	}

	now := time.Now().UTC()
	records := make([]Attendance, 0, len(data.Marks))
	for i, m := range data.Marks {
		att, err := svc.repo.UpsertAttendance(ctx, Attendance{
			StudentID: m.StudentID,
			ClassID:   students[i].ClassID.Int,
			Date:      data.Date,
			Status:    m.Status,
			MarkedBy:  markedBy.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "saving attendance")
		}
		records = append(records, att)
	}
	return records, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "date", Ascending: false}, {Field: "student_name", Ascending: true}}
	}
	return svc.repo.QueryAttendance(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountAttendance(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Attendance, error) {
	return svc.repo.GetAttendance(ctx, id)
}

func (svc *service) StatusOn(ctx context.Context, studentIDs []int, day core.Date) (map[int]Attendance, error) {
	res := make(map[int]Attendance, len(studentIDs))
	if len(studentIDs) == 0 {
		return res, nil
	}
	records, err := svc.repo.QueryAttendance(ctx, &QueryFilter{StudentIDs: studentIDs, Date: day}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	for _, att := range records {
		res[att.StudentID] = att
	}
	return res, nil
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteAttendance(ctx, id)
}
