package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/subject"
)

var subjectOrdering = map[string]comparator[subject.Subject]{
	"id":         func(a, b subject.Subject) int { return cmpNum(a.ID, b.ID) },
	"name":       func(a, b subject.Subject) int { return cmpFold(a.Name, b.Name) },
	"class_id":   func(a, b subject.Subject) int { return cmpNum(a.ClassID, b.ClassID) },
	"class_name": func(a, b subject.Subject) int { return cmpFold(a.ClassName, b.ClassName) },
	"created_at": func(a, b subject.Subject) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) join(sub subject.Subject) subject.Subject {
	if cls, ok := repo.db.classes[sub.ClassID]; ok {
		sub.ClassName = cls.Name
	}
	sub.MaterialCount = 0
	for _, m := range repo.db.materials {
		if m.SubjectID == sub.ID {
			sub.MaterialCount++
		}
	}
	return sub
}

func (repo *subjectRepository) validate(sub subject.Subject) error {
	if _, ok := repo.db.classes[sub.ClassID]; !ok {
		return errForeignKey("subjects.class_id")
	}
	for _, s := range repo.db.subjects {
		if s.ID != sub.ID && s.ClassID == sub.ClassID && strings.EqualFold(s.Name, sub.Name) {
			return errUnique("subjects.class_id_name")
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.validate(sub); err != nil {
		return subject.Subject{}, err
	}
	sub.ID = repo.db.nextID("subjects")
	repo.db.subjects[sub.ID] = &sub
	return repo.join(sub), nil
}

func (repo *subjectRepository) match(sub *subject.Subject, filter *subject.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.ClassID != 0 && sub.ClassID != filter.ClassID {
		return false
	}
	if filter.ClassIDs != nil && !inIDs(filter.ClassIDs, sub.ClassID) {
		return false
	}
	return true
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]subject.Subject, 0)
	for _, sub := range repo.db.subjects {
		if repo.match(sub, filter) {
			subjects = append(subjects, repo.join(*sub))
		}
	}
	sortBy(subjects, ordering, subjectOrdering, subjectOrdering["id"])
	return subjects, nil
}

func (repo *subjectRepository) CountSubjects(_ context.Context, filter *subject.QueryFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, sub := range repo.db.subjects {
		if repo.match(sub, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, id int) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return repo.join(*sub), nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetSubjectByName(_ context.Context, classID int, name string) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.subjects {
		if sub.ClassID == classID && strings.EqualFold(sub.Name, name) {
			return repo.join(*sub), nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[sub.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if err := repo.validate(sub); err != nil {
		return subject.Subject{}, err
	}
	repo.db.subjects[sub.ID] = &sub
	return repo.join(sub), nil
}

func (repo *subjectRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	repo.db.deleteSubject(id)
	return nil
}
