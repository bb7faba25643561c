package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
)

const attendanceSelect = `SELECT a.id, a.student_id, s.full_name AS student_name, a.class_id, c.name AS class_name,
	a.date, a.status, a.marked_by, COALESCE(u.full_name, '') AS marked_by_name, a.created_at, a.updated_at
	FROM attendance a
	JOIN students s ON s.id = a.student_id
	JOIN classes c ON c.id = a.class_id
	LEFT JOIN users u ON u.id = a.marked_by`

var attendanceOrdering = map[string]string{
	"id":           "a.id",
	"date":         "a.date",
	"status":       "a.status",
	"student_name": "s.full_name",
	"class_name":   "c.name",
}

type attendanceRow struct {
	ID           int       `db:"id"`
	StudentID    int       `db:"student_id"`
	StudentName  string    `db:"student_name"`
	ClassID      int       `db:"class_id"`
	ClassName    string    `db:"class_name"`
	Date         core.Date `db:"date"`
	Status       string    `db:"status"`
	MarkedBy     null.Int  `db:"marked_by"`
	MarkedByName string    `db:"marked_by_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r attendanceRow) attendance() attendance.Attendance {
	return attendance.Attendance{
		ID:           r.ID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		ClassID:      r.ClassID,
		ClassName:    r.ClassName,
		Date:         r.Date,
		Status:       r.Status,
		MarkedBy:     r.MarkedBy.Int,
		MarkedByName: r.MarkedByName,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := repo.db.Rebind(`INSERT INTO attendance
		(student_id, class_id, date, status, marked_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, date) DO UPDATE SET
			class_id = EXCLUDED.class_id, status = EXCLUDED.status, marked_by = EXCLUDED.marked_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		att.StudentID, att.ClassID, att.Date, att.Status, null.NewInt(att.MarkedBy, att.MarkedBy > 0),
		att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return repo.GetAttendance(ctx, att.ID)
}

func (repo *attendanceRepository) filter(filter *attendance.QueryFilter) *where {
	w := &where{}
	if filter == nil {
		return w
	}
	if filter.StudentID != 0 {
		w.add("a.student_id = ?", filter.StudentID)
	}
	if filter.StudentIDs != nil {
		if len(filter.StudentIDs) == 0 {
			w.add("FALSE")
		} else {
			w.add("a.student_id IN (?)", filter.StudentIDs)
		}
	}
	if filter.ClassID != 0 {
		w.add("a.class_id = ?", filter.ClassID)
	}
	if filter.Status != "" {
		w.add("a.status = ?", filter.Status)
	}
	if !filter.Date.IsZero() {
		w.add("a.date = ?", filter.Date)
	}
	if !filter.DateFrom.IsZero() {
		w.add("a.date >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		w.add("a.date <= ?", filter.DateTo)
	}
	return w
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Attendance, error) {
	w := repo.filter(filter)
	q := attendanceSelect + w.String() + " ORDER BY " + core.OrderingClause(ordering, attendanceOrdering, "a.date DESC")
	var rows []attendanceRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.attendance())
	}
	return records, nil
}

func (repo *attendanceRepository) CountAttendance(ctx context.Context, filter *attendance.QueryFilter) (int, error) {
	w := repo.filter(filter)
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM attendance a"+w.String(), w.args...)
	return n, errors.Wrap(err, "counting attendance")
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, id int) (attendance.Attendance, error) {
	var r attendanceRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(attendanceSelect+" WHERE a.id = ?"), id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return r.attendance(), nil
}

func (repo *attendanceRepository) DeleteAttendance(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM attendance WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return checkAffected(res, attendance.ErrNotFound)
}
