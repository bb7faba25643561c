package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
)

const classeSelect = `SELECT c.id, c.name, c.description, c.created_at,
	(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count,
	(SELECT COUNT(*) FROM subjects sb WHERE sb.class_id = c.id) AS subject_count
	FROM classes c`

var classeOrdering = map[string]string{
	"id":            "c.id",
	"name":          "c.name",
	"created_at":    "c.created_at",
	"student_count": "student_count",
}

type classeRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
	StudentCount int       `db:"student_count"`
	SubjectCount int       `db:"subject_count"`
}

func (r classeRow) classe() classe.Classe {
	return classe.Classe{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		StudentCount: r.StudentCount,
		SubjectCount: r.SubjectCount,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type classeRepository struct {
	db *sqlx.DB
}

var _ classe.Repository = (*classeRepository)(nil)

func NewClasseRepository(db *sqlx.DB) classe.Repository {
	return &classeRepository{db: db}
}

func (repo *classeRepository) CreateClasse(ctx context.Context, cls classe.Classe) (classe.Classe, error) {
	q := repo.db.Rebind(`INSERT INTO classes (name, description, created_at) VALUES (?, ?, ?) RETURNING id`)
	if err := repo.db.QueryRowxContext(ctx, q, cls.Name, cls.Description, cls.CreatedAt).Scan(&cls.ID); err != nil {
		return classe.Classe{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *classeRepository) QueryClasses(ctx context.Context, ordering []core.DBOrdering) ([]classe.Classe, error) {
	q := classeSelect + " ORDER BY " + core.OrderingClause(ordering, classeOrdering, "c.name ASC")
	var rows []classeRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]classe.Classe, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.classe())
	}
	return classes, nil
}

func (repo *classeRepository) CountClasses(ctx context.Context) (int, error) {
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM classes")
	return n, errors.Wrap(err, "counting classes")
}

func (repo *classeRepository) get(ctx context.Context, cond string, arg interface{}) (classe.Classe, error) {
	var r classeRow
	q := repo.db.Rebind(classeSelect + " WHERE " + cond)
	if err := repo.db.GetContext(ctx, &r, q, arg); err != nil {
		return classe.Classe{}, trapNoRowsErr(err, classe.ErrNotFound, "finding class")
	}
	return r.classe(), nil
}

func (repo *classeRepository) GetClasse(ctx context.Context, id int) (classe.Classe, error) {
	return repo.get(ctx, "c.id = ?", id)
}

func (repo *classeRepository) GetClasseByName(ctx context.Context, name string) (classe.Classe, error) {
	return repo.get(ctx, "LOWER(c.name) = LOWER(?)", name)
}

func (repo *classeRepository) UpdateClasse(ctx context.Context, cls classe.Classe) (classe.Classe, error) {
	q := repo.db.Rebind(`UPDATE classes SET name = ?, description = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, cls.Name, cls.Description, cls.ID)
	if err != nil {
		return classe.Classe{}, errors.Wrap(err, "updating class")
	}
	if err := checkAffected(res, classe.ErrNotFound); err != nil {
		return classe.Classe{}, err
	}
	return cls, nil
}

// DeleteClasse relies on the foreign keys: students.class_id is set to NULL,
// subjects (and their materials) and attendance are deleted.
func (repo *classeRepository) DeleteClasse(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM classes WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return checkAffected(res, classe.ErrNotFound)
}
