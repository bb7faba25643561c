package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
)

const studentSelect = `SELECT s.id, s.parent_id, u.full_name AS parent_name, s.class_id, c.name AS class_name,
	s.full_name, s.date_of_birth, s.profile_image_url, s.created_at
	FROM students s
	JOIN users u ON u.id = s.parent_id
	LEFT JOIN classes c ON c.id = s.class_id`

var studentOrdering = map[string]string{
	"id":          "s.id",
	"full_name":   "s.full_name",
	"parent_name": "u.full_name",
	"class_name":  "c.name",
	"created_at":  "s.created_at",
}

type studentRow struct {
	ID              int         `db:"id"`
	ParentID        int         `db:"parent_id"`
	ParentName      string      `db:"parent_name"`
	ClassID         null.Int    `db:"class_id"`
	ClassName       null.String `db:"class_name"`
	FullName        string      `db:"full_name"`
	DateOfBirth     core.Date   `db:"date_of_birth"`
	ProfileImageURL null.String `db:"profile_image_url"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:              r.ID,
		ParentID:        r.ParentID,
		ParentName:      r.ParentName,
		ClassID:         r.ClassID,
		ClassName:       r.ClassName,
		FullName:        r.FullName,
		DateOfBirth:     r.DateOfBirth,
		ProfileImageURL: r.ProfileImageURL,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := repo.db.Rebind(`INSERT INTO students
		(parent_id, class_id, full_name, date_of_birth, profile_image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		st.ParentID, st.ClassID, st.FullName, st.DateOfBirth, st.ProfileImageURL, st.CreatedAt,
	).Scan(&st.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudent(ctx, st.ID)
}

func (repo *studentRepository) filter(filter *student.QueryFilter) *where {
	w := &where{}
	if filter == nil {
		return w
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(s.full_name ILIKE ? OR u.full_name ILIKE ?)", val, val)
	}
	if filter.ParentID != 0 {
		w.add("s.parent_id = ?", filter.ParentID)
	}
	if filter.ClassID != 0 {
		w.add("s.class_id = ?", filter.ClassID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			w.add("FALSE")
		} else {
			w.add("s.id IN (?)", filter.IDs)
		}
	}
	return w
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	w := repo.filter(filter)
	q := studentSelect + w.String() + " ORDER BY " + core.OrderingClause(ordering, studentOrdering, "s.full_name ASC")
	var rows []studentRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter) (int, error) {
	w := repo.filter(filter)
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM students s JOIN users u ON u.id = s.parent_id"+w.String(), w.args...)
	return n, errors.Wrap(err, "counting students")
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var r studentRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(studentSelect+" WHERE s.id = ?"), id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return r.student(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := repo.db.Rebind(`UPDATE students SET
		parent_id = ?, class_id = ?, full_name = ?, date_of_birth = ?, profile_image_url = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		st.ParentID, st.ClassID, st.FullName, st.DateOfBirth, st.ProfileImageURL, st.ID,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err := checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, st.ID)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}
