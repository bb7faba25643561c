package inmemdb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/student"
)

var studentOrdering = map[string]comparator[student.Student]{
	"id":          func(a, b student.Student) int { return cmpNum(a.ID, b.ID) },
	"full_name":   func(a, b student.Student) int { return cmpFold(a.FullName, b.FullName) },
	"parent_name": func(a, b student.Student) int { return cmpFold(a.ParentName, b.ParentName) },
	"class_name":  func(a, b student.Student) int { return cmpFold(a.ClassName.String, b.ClassName.String) },
	"created_at":  func(a, b student.Student) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// join fills the parent and class names; caller holds a lock.
func (repo *studentRepository) join(st student.Student) student.Student {
	if parent, ok := repo.db.users[st.ParentID]; ok {
		st.ParentName = parent.FullName
	}
	st.ClassName = null.String{}
	if st.ClassID.Valid {
		if cls, ok := repo.db.classes[st.ClassID.Int]; ok {
			st.ClassName = null.StringFrom(cls.Name)
		}
	}
	return st
}

func (repo *studentRepository) checkRelations(st student.Student) error {
	if _, ok := repo.db.users[st.ParentID]; !ok {
		return errForeignKey("students.parent_id")
	}
	if st.ClassID.Valid {
		if _, ok := repo.db.classes[st.ClassID.Int]; !ok {
			return errForeignKey("students.class_id")
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkRelations(st); err != nil {
		return student.Student{}, err
	}
	st.ID = repo.db.nextID("students")
	repo.db.students[st.ID] = &st
	return repo.join(st), nil
}

func (repo *studentRepository) match(st student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !(containsFold(st.FullName, filter.Search) || containsFold(st.ParentName, filter.Search)) {
		return false
	}
	if filter.ParentID != 0 && st.ParentID != filter.ParentID {
		return false
	}
	if filter.ClassID != 0 && !(st.ClassID.Valid && st.ClassID.Int == filter.ClassID) {
		return false
	}
	if filter.IDs != nil && !inIDs(filter.IDs, st.ID) {
		return false
	}
	return true
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, st := range repo.db.students {
		if s := repo.join(*st); repo.match(s, filter) {
			students = append(students, s)
		}
	}
	sortBy(students, ordering, studentOrdering, studentOrdering["id"])
	return students, nil
}

func (repo *studentRepository) CountStudents(_ context.Context, filter *student.QueryFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, st := range repo.db.students {
		if repo.match(repo.join(*st), filter) {
			n++
		}
	}
	return n, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return repo.join(*st), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkRelations(st); err != nil {
		return student.Student{}, err
	}
	repo.db.students[st.ID] = &st
	return repo.join(st), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}
