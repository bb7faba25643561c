package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
)

var classeOrdering = map[string]comparator[classe.Classe]{
	"id":            func(a, b classe.Classe) int { return cmpNum(a.ID, b.ID) },
	"name":          func(a, b classe.Classe) int { return cmpFold(a.Name, b.Name) },
	"created_at":    func(a, b classe.Classe) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"student_count": func(a, b classe.Classe) int { return cmpNum(a.StudentCount, b.StudentCount) },
}

type classeRepository struct {
	db *DB
}

var _ classe.Repository = (*classeRepository)(nil)

func NewClasseRepository(db *DB) classe.Repository {
	return &classeRepository{db: db}
}

// withCounts fills the computed columns; caller holds a lock.
func (repo *classeRepository) withCounts(cls classe.Classe) classe.Classe {
	cls.StudentCount, cls.SubjectCount = 0, 0
	for _, st := range repo.db.students {
		if st.ClassID.Valid && st.ClassID.Int == cls.ID {
			cls.StudentCount++
		}
	}
	for _, sub := range repo.db.subjects {
		if sub.ClassID == cls.ID {
			cls.SubjectCount++
		}
	}
	return cls
}

func (repo *classeRepository) nameTaken(name string, id int) bool {
	for _, c := range repo.db.classes {
		if c.ID != id && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (repo *classeRepository) CreateClasse(_ context.Context, cls classe.Classe) (classe.Classe, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.nameTaken(cls.Name, 0) {
		return classe.Classe{}, errUnique("classes.name")
	}
	cls.ID = repo.db.nextID("classes")
	repo.db.classes[cls.ID] = &cls
	return repo.withCounts(cls), nil
}

func (repo *classeRepository) QueryClasses(_ context.Context, ordering []core.DBOrdering) ([]classe.Classe, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]classe.Classe, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, repo.withCounts(*cls))
	}
	sortBy(classes, ordering, classeOrdering, classeOrdering["name"])
	return classes, nil
}

func (repo *classeRepository) CountClasses(_ context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.classes), nil
}

func (repo *classeRepository) GetClasse(_ context.Context, id int) (classe.Classe, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return repo.withCounts(*cls), nil
	}
	return classe.Classe{}, classe.ErrNotFound
}

func (repo *classeRepository) GetClasseByName(_ context.Context, name string) (classe.Classe, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cls := range repo.db.classes {
		if strings.EqualFold(cls.Name, name) {
			return repo.withCounts(*cls), nil
		}
	}
	return classe.Classe{}, classe.ErrNotFound
}

func (repo *classeRepository) UpdateClasse(_ context.Context, cls classe.Classe) (classe.Classe, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.classes[cls.ID]
	if !ok {
		return classe.Classe{}, classe.ErrNotFound
	}
	if repo.nameTaken(cls.Name, cls.ID) {
		return classe.Classe{}, errUnique("classes.name")
	}
	orig.Name = cls.Name
	orig.Description = cls.Description
	return repo.withCounts(*orig), nil
}

func (repo *classeRepository) DeleteClasse(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return classe.ErrNotFound
	}
	repo.db.deleteClasse(id)
	return nil
}
