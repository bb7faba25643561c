package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
)

const materialSelect = `SELECT m.id, m.subject_id, sb.name AS subject_name, m.title, m.type, m.file_url, m.video_url,
	m.order_index, m.created_at
	FROM materials m
	JOIN subjects sb ON sb.id = m.subject_id`

var materialOrdering = map[string]string{
	"id":          "m.id",
	"title":       "m.title",
	"subject_id":  "m.subject_id",
	"order_index": "m.order_index",
	"created_at":  "m.created_at",
}

type materialRow struct {
	ID          int         `db:"id"`
	SubjectID   int         `db:"subject_id"`
	SubjectName string      `db:"subject_name"`
	Title       string      `db:"title"`
	Type        string      `db:"type"`
	FileURL     null.String `db:"file_url"`
	VideoURL    null.String `db:"video_url"`
	OrderIndex  int         `db:"order_index"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r materialRow) material() material.Material {
	return material.Material{
		ID:          r.ID,
		SubjectID:   r.SubjectID,
		SubjectName: r.SubjectName,
		Title:       r.Title,
		Type:        r.Type,
		FileURL:     r.FileURL,
		VideoURL:    r.VideoURL,
		OrderIndex:  r.OrderIndex,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil)

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	q := repo.db.Rebind(`INSERT INTO materials
		(subject_id, title, type, file_url, video_url, order_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		mat.SubjectID, mat.Title, mat.Type, mat.FileURL, mat.VideoURL, mat.OrderIndex, mat.CreatedAt,
	).Scan(&mat.ID)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return repo.GetMaterial(ctx, mat.ID)
}

func (repo *materialRepository) QueryMaterials(ctx context.Context, filter *material.QueryFilter, ordering []core.DBOrdering) ([]material.Material, error) {
	w := &where{}
	if filter != nil {
		if filter.SubjectID != 0 {
			w.add("m.subject_id = ?", filter.SubjectID)
		}
		if filter.SubjectIDs != nil {
			if len(filter.SubjectIDs) == 0 {
				w.add("FALSE")
			} else {
				w.add("m.subject_id IN (?)", filter.SubjectIDs)
			}
		}
	}
	q := materialSelect + w.String() + " ORDER BY " + core.OrderingClause(ordering, materialOrdering, "m.order_index ASC")

	var rows []materialRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	mats := make([]material.Material, 0, len(rows))
	for _, r := range rows {
		mats = append(mats, r.material())
	}
	return mats, nil
}

func (repo *materialRepository) GetMaterial(ctx context.Context, id int) (material.Material, error) {
	var r materialRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(materialSelect+" WHERE m.id = ?"), id); err != nil {
		return material.Material{}, trapNoRowsErr(err, material.ErrNotFound, "finding material")
	}
	return r.material(), nil
}

func (repo *materialRepository) UpdateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	q := repo.db.Rebind(`UPDATE materials SET
		subject_id = ?, title = ?, type = ?, file_url = ?, video_url = ?, order_index = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		mat.SubjectID, mat.Title, mat.Type, mat.FileURL, mat.VideoURL, mat.OrderIndex, mat.ID,
	)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "updating material")
	}
	if err := checkAffected(res, material.ErrNotFound); err != nil {
		return material.Material{}, err
	}
	return repo.GetMaterial(ctx, mat.ID)
}

func (repo *materialRepository) DeleteMaterial(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM materials WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return checkAffected(res, material.ErrNotFound)
}
