package inmemdb

import (
	"cmp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
)

// DB is an in-memory relational store enforcing the same foreign-key behaviour as the postgres schema.
// A single lock guards every table so cascades stay consistent.
type DB struct {
	mu  sync.RWMutex
	seq map[string]int

	users      map[int]*user.User
	classes    map[int]*classe.Classe
	students   map[int]*student.Student
	subjects   map[int]*subject.Subject
	materials  map[int]*material.Material
	payments   map[int]*payment.Payment
	attendance map[int]*attendance.Attendance
}

func Open() *DB {
	return &DB{
		seq:        make(map[string]int),
		users:      make(map[int]*user.User),
		classes:    make(map[int]*classe.Classe),
		students:   make(map[int]*student.Student),
		subjects:   make(map[int]*subject.Subject),
		materials:  make(map[int]*material.Material),
		payments:   make(map[int]*payment.Payment),
		attendance: make(map[int]*attendance.Attendance),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.seq = make(map[string]int)
	db.users = make(map[int]*user.User)
	db.classes = make(map[int]*classe.Classe)
	db.students = make(map[int]*student.Student)
	db.subjects = make(map[int]*subject.Subject)
	db.materials = make(map[int]*material.Material)
	db.payments = make(map[int]*payment.Payment)
	db.attendance = make(map[int]*attendance.Attendance)
}

func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// cascades; callers hold the write lock

func (db *DB) deleteUser(id int) {
	delete(db.users, id)
	for _, st := range db.students {
		if st.ParentID == id {
			db.deleteStudent(st.ID)
		}
	}
	for _, a := range db.attendance {
		if a.MarkedBy == id {
			a.MarkedBy = 0
		}
	}
}

func (db *DB) deleteClasse(id int) {
	delete(db.classes, id)
	for _, st := range db.students {
		if st.ClassID.Valid && st.ClassID.Int == id {
			st.ClassID.Int, st.ClassID.Valid = 0, false
		}
	}
	for _, sub := range db.subjects {
		if sub.ClassID == id {
			db.deleteSubject(sub.ID)
		}
	}
	for aid, a := range db.attendance {
		if a.ClassID == id {
			delete(db.attendance, aid)
		}
	}
}

func (db *DB) deleteStudent(id int) {
	delete(db.students, id)
	for pid, p := range db.payments {
		if p.StudentID == id {
			delete(db.payments, pid)
		}
	}
	for aid, a := range db.attendance {
		if a.StudentID == id {
			delete(db.attendance, aid)
		}
	}
}

func (db *DB) deleteSubject(id int) {
	delete(db.subjects, id)
	for mid, m := range db.materials {
		if m.SubjectID == id {
			delete(db.materials, mid)
		}
	}
}

// ordering

type comparator[T any] func(a, b T) int

// sortBy orders items by the known fields of ordering, then by fallback.
func sortBy[T any](items []T, ordering []core.DBOrdering, fields map[string]comparator[T], fallback comparator[T]) {
	cmps := make([]comparator[T], 0, len(ordering)+1)
	for _, ord := range ordering {
		c, ok := fields[ord.Field]
		if !ok {
			continue
		}
		if !ord.Ascending {
			c = reversed(c)
		}
		cmps = append(cmps, c)
	}
	cmps = append(cmps, fallback)

	sort.SliceStable(items, func(i, j int) bool {
		for _, c := range cmps {
			if r := c(items[i], items[j]); r != 0 {
				return r < 0
			}
		}
		return false
	})
}

func reversed[T any](c comparator[T]) comparator[T] {
	return func(a, b T) int { return c(b, a) }
}

func cmpFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	return a.Compare(b)
}

func cmpNum[N cmp.Ordered](a, b N) int {
	return cmp.Compare(a, b)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inIDs(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func errUnique(constraint string) error {
	return errors.Errorf("unique constraint violated: %s", constraint)
}

func errForeignKey(constraint string) error {
	return errors.Errorf("foreign key constraint violated: %s", constraint)
}
