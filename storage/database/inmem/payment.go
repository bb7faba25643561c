package inmemdb

import (
	"context"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/payment"
)

var paymentOrdering = map[string]comparator[payment.Payment]{
	"id":           func(a, b payment.Payment) int { return cmpNum(a.ID, b.ID) },
	"amount":       func(a, b payment.Payment) int { return cmpNum(a.Amount, b.Amount) },
	"due_date":     func(a, b payment.Payment) int { return cmpTime(a.DueDate.Time, b.DueDate.Time) },
	"paid_date":    func(a, b payment.Payment) int { return cmpTime(a.PaidDate.Time, b.PaidDate.Time) },
	"student_name": func(a, b payment.Payment) int { return cmpFold(a.StudentName, b.StudentName) },
	"created_at":   func(a, b payment.Payment) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) join(p payment.Payment) payment.Payment {
	if st, ok := repo.db.students[p.StudentID]; ok {
		p.StudentName = st.FullName
	}
	return p
}

func (repo *paymentRepository) match(p *payment.Payment, filter *payment.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != 0 && p.StudentID != filter.StudentID {
		return false
	}
	if filter.StudentIDs != nil && !inIDs(filter.StudentIDs, p.StudentID) {
		return false
	}
	if filter.IsPaid != nil && p.IsPaid != *filter.IsPaid {
		return false
	}
	if !filter.DueFrom.IsZero() && p.DueDate.Before(filter.DueFrom.Time) {
		return false
	}
	if !filter.DueTo.IsZero() && p.DueDate.After(filter.DueTo.Time) {
		return false
	}
	return true
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[p.StudentID]; !ok {
		return payment.Payment{}, errForeignKey("payments.student_id")
	}
	p.ID = repo.db.nextID("payments")
	repo.db.payments[p.ID] = &p
	return repo.join(p), nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payments {
		if repo.match(p, filter) {
			payments = append(payments, repo.join(*p))
		}
	}
	sortBy(payments, ordering, paymentOrdering, reversed(paymentOrdering["id"]))
	return payments, nil
}

func (repo *paymentRepository) CountPayments(_ context.Context, filter *payment.QueryFilter) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, p := range repo.db.payments {
		if repo.match(p, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id int) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.payments[id]; ok {
		return repo.join(*p), nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.payments[p.ID]; !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if _, ok := repo.db.students[p.StudentID]; !ok {
		return payment.Payment{}, errForeignKey("payments.student_id")
	}
	repo.db.payments[p.ID] = &p
	return repo.join(p), nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.payments[id]; !ok {
		return payment.ErrNotFound
	}
	delete(repo.db.payments, id)
	return nil
}
