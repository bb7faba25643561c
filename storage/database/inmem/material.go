package inmemdb

import (
	"context"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
)

var materialOrdering = map[string]comparator[material.Material]{
	"id":          func(a, b material.Material) int { return cmpNum(a.ID, b.ID) },
	"title":       func(a, b material.Material) int { return cmpFold(a.Title, b.Title) },
	"subject_id":  func(a, b material.Material) int { return cmpNum(a.SubjectID, b.SubjectID) },
	"order_index": func(a, b material.Material) int { return cmpNum(a.OrderIndex, b.OrderIndex) },
	"created_at":  func(a, b material.Material) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type materialRepository struct {
	db *DB
}

var _ material.Repository = (*materialRepository)(nil)

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) join(mat material.Material) material.Material {
	if sub, ok := repo.db.subjects[mat.SubjectID]; ok {
		mat.SubjectName = sub.Name
	}
	return mat
}

func (repo *materialRepository) CreateMaterial(_ context.Context, mat material.Material) (material.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[mat.SubjectID]; !ok {
		return material.Material{}, errForeignKey("materials.subject_id")
	}
	mat.ID = repo.db.nextID("materials")
	repo.db.materials[mat.ID] = &mat
	return repo.join(mat), nil
}

func (repo *materialRepository) QueryMaterials(_ context.Context, filter *material.QueryFilter, ordering []core.DBOrdering) ([]material.Material, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	mats := make([]material.Material, 0)
	for _, mat := range repo.db.materials {
		if filter != nil {
			if filter.SubjectID != 0 && mat.SubjectID != filter.SubjectID {
				continue
			}
			if filter.SubjectIDs != nil && !inIDs(filter.SubjectIDs, mat.SubjectID) {
				continue
			}
		}
		mats = append(mats, repo.join(*mat))
	}
	sortBy(mats, ordering, materialOrdering, materialOrdering["id"])
	return mats, nil
}

func (repo *materialRepository) GetMaterial(_ context.Context, id int) (material.Material, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if mat, ok := repo.db.materials[id]; ok {
		return repo.join(*mat), nil
	}
	return material.Material{}, material.ErrNotFound
}

func (repo *materialRepository) UpdateMaterial(_ context.Context, mat material.Material) (material.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.materials[mat.ID]; !ok {
		return material.Material{}, material.ErrNotFound
	}
	if _, ok := repo.db.subjects[mat.SubjectID]; !ok {
		return material.Material{}, errForeignKey("materials.subject_id")
	}
	repo.db.materials[mat.ID] = &mat
	return repo.join(mat), nil
}

func (repo *materialRepository) DeleteMaterial(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.materials[id]; !ok {
		return material.ErrNotFound
	}
	delete(repo.db.materials, id)
	return nil
}
