package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/subject"
)

const subjectSelect = `SELECT sb.id, sb.class_id, c.name AS class_name, sb.name, sb.description, sb.created_at,
	(SELECT COUNT(*) FROM materials m WHERE m.subject_id = sb.id) AS material_count
	FROM subjects sb
	JOIN classes c ON c.id = sb.class_id`

var subjectOrdering = map[string]string{
	"id":         "sb.id",
	"name":       "sb.name",
	"class_id":   "sb.class_id",
	"class_name": "c.name",
	"created_at": "sb.created_at",
}

type subjectRow struct {
	ID            int       `db:"id"`
	ClassID       int       `db:"class_id"`
	ClassName     string    `db:"class_name"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	CreatedAt     time.Time `db:"created_at"`
	MaterialCount int       `db:"material_count"`
}

func (r subjectRow) subject() subject.Subject {
	return subject.Subject{
		ID:            r.ID,
		ClassID:       r.ClassID,
		ClassName:     r.ClassName,
		Name:          r.Name,
		Description:   r.Description,
		MaterialCount: r.MaterialCount,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q := repo.db.Rebind(`INSERT INTO subjects (class_id, name, description, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := repo.db.QueryRowxContext(ctx, q, sub.ClassID, sub.Name, sub.Description, sub.CreatedAt).Scan(&sub.ID); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return repo.GetSubject(ctx, sub.ID)
}

func (repo *subjectRepository) filter(filter *subject.QueryFilter) *where {
	w := &where{}
	if filter == nil {
		return w
	}
	if filter.ClassID != 0 {
		w.add("sb.class_id = ?", filter.ClassID)
	}
	if filter.ClassIDs != nil {
		if len(filter.ClassIDs) == 0 {
			w.add("FALSE")
		} else {
			w.add("sb.class_id IN (?)", filter.ClassIDs)
		}
	}
	return w
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	w := repo.filter(filter)
	q := subjectSelect + w.String() + " ORDER BY " + core.OrderingClause(ordering, subjectOrdering, "sb.name ASC")
	var rows []subjectRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *subjectRepository) CountSubjects(ctx context.Context, filter *subject.QueryFilter) (int, error) {
	w := repo.filter(filter)
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM subjects sb"+w.String(), w.args...)
	return n, errors.Wrap(err, "counting subjects")
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id int) (subject.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(subjectSelect+" WHERE sb.id = ?"), id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject")
	}
	return r.subject(), nil
}

func (repo *subjectRepository) GetSubjectByName(ctx context.Context, classID int, name string) (subject.Subject, error) {
	var r subjectRow
	q := repo.db.Rebind(subjectSelect + " WHERE sb.class_id = ? AND LOWER(sb.name) = LOWER(?)")
	if err := repo.db.GetContext(ctx, &r, q, classID, name); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject by name")
	}
	return r.subject(), nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	q := repo.db.Rebind(`UPDATE subjects SET class_id = ?, name = ?, description = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, sub.ClassID, sub.Name, sub.Description, sub.ID)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if err := checkAffected(res, subject.ErrNotFound); err != nil {
		return subject.Subject{}, err
	}
	return repo.GetSubject(ctx, sub.ID)
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM subjects WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return checkAffected(res, subject.ErrNotFound)
}
