package inmemdb

import (
	"context"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
)

var attendanceOrdering = map[string]comparator[attendance.Attendance]{
	"id":           func(a, b attendance.Attendance) int { return cmpNum(a.ID, b.ID) },
	"date":         func(a, b attendance.Attendance) int { return cmpTime(a.Date.Time, b.Date.Time) },
	"status":       func(a, b attendance.Attendance) int { return cmpFold(a.Status, b.Status) },
	"student_name": func(a, b attendance.Attendance) int { return cmpFold(a.StudentName, b.StudentName) },
	"class_name":   func(a, b attendance.Attendance) int { return cmpFold(a.ClassName, b.ClassName) },
}

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) join(att attendance.Attendance) attendance.Attendance {
	if st, ok := repo.db.students[att.StudentID]; ok {
		att.StudentName = st.FullName
	}
	if cls, ok := repo.db.classes[att.ClassID]; ok {
		att.ClassName = cls.Name
	}
	att.MarkedByName = ""
	if usr, ok := repo.db.users[att.MarkedBy]; ok {
		att.MarkedByName = usr.FullName
	}
	return att
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[att.StudentID]; !ok {
		return attendance.Attendance{}, errForeignKey("attendance.student_id")
	}
	if _, ok := repo.db.classes[att.ClassID]; !ok {
		return attendance.Attendance{}, errForeignKey("attendance.class_id")
	}
	if _, ok := repo.db.users[att.MarkedBy]; !ok {
		att.MarkedBy = 0
	}

	for _, existing := range repo.db.attendance {
		if existing.StudentID == att.StudentID && existing.Date.Equal(att.Date) {
			existing.ClassID = att.ClassID
			existing.Status = att.Status
			existing.MarkedBy = att.MarkedBy
			existing.UpdatedAt = att.UpdatedAt
			return repo.join(*existing), nil
		}
	}
	att.ID = repo.db.nextID("attendance")
	repo.db.attendance[att.ID] = &att
	return repo.join(att), nil
}

func (repo *attendanceRepository) match(att *attendance.Attendance, filter *attendance.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != 0 && att.StudentID != filter.StudentID {
		return false
	}
	if filter.StudentIDs != nil && !inIDs(filter.StudentIDs, att.StudentID) {
		return false
	}
	if filter.ClassID != 0 && att.ClassID != filter.ClassID {
		return false
	}
	if filter.Status != "" && att.Status != filter.Status {
		return false
	}
	if !filter.Date.IsZero() && !att.Date.Equal(filter.Date) {
		return false
	}
	if !filter.DateFrom.IsZero() && att.Date.Before(filter.DateFrom.Time) {
		return false
	}
	if !filter.DateTo.IsZero() && att.Date.After(filter.DateTo.Time) {
		return false
	}
	return true
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Attendance, 0)
	for _, att := range repo.db.attendance {
		if repo.match(att, filter) {
			records = append(records, repo.join(*att))
		}
	}
	sortBy(records, ordering, attendanceOrdering, reversed(attendanceOrdering["date"]))
	return records, nil
}

func (repo *attendanceRepository) CountAttendance(_ context.Context, filter *attendance.QueryFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, att := range repo.db.attendance {
		if repo.match(att, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, id int) (attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if att, ok := repo.db.attendance[id]; ok {
		return repo.join(*att), nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) DeleteAttendance(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.attendance[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.attendance, id)
	return nil
}
