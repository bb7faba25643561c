package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/payment"
)

const paymentSelect = `SELECT p.id, p.student_id, s.full_name AS student_name, p.amount, p.due_date, p.paid_date,
	p.is_paid, p.notes, p.created_at
	FROM payments p
	JOIN students s ON s.id = p.student_id`

var paymentOrdering = map[string]string{
	"id":           "p.id",
	"amount":       "p.amount",
	"due_date":     "p.due_date",
	"paid_date":    "p.paid_date",
	"student_name": "s.full_name",
	"created_at":   "p.created_at",
}

type paymentRow struct {
	ID          int       `db:"id"`
	StudentID   int       `db:"student_id"`
	StudentName string    `db:"student_name"`
	Amount      float64   `db:"amount"`
	DueDate     core.Date `db:"due_date"`
	PaidDate    core.Date `db:"paid_date"`
	IsPaid      bool      `db:"is_paid"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Amount:      r.Amount,
		DueDate:     r.DueDate,
		PaidDate:    r.PaidDate,
		IsPaid:      r.IsPaid,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := repo.db.Rebind(`INSERT INTO payments
		(student_id, amount, due_date, paid_date, is_paid, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		p.StudentID, p.Amount, p.DueDate, p.PaidDate, p.IsPaid, p.Notes, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return repo.GetPayment(ctx, p.ID)
}

func (repo *paymentRepository) filter(filter *payment.QueryFilter) *where {
	w := &where{}
	if filter == nil {
		return w
	}
	if filter.StudentID != 0 {
		w.add("p.student_id = ?", filter.StudentID)
	}
	if filter.StudentIDs != nil {
		if len(filter.StudentIDs) == 0 {
			w.add("FALSE")
		} else {
			w.add("p.student_id IN (?)", filter.StudentIDs)
		}
	}
	if filter.IsPaid != nil {
		w.add("p.is_paid = ?", *filter.IsPaid)
	}
	if !filter.DueFrom.IsZero() {
		w.add("p.due_date >= ?", filter.DueFrom)
	}
	if !filter.DueTo.IsZero() {
		w.add("p.due_date <= ?", filter.DueTo)
	}
	return w
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	w := repo.filter(filter)
	q := paymentSelect + w.String() + " ORDER BY " + core.OrderingClause(ordering, paymentOrdering, "p.due_date DESC")
	var rows []paymentRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.payment())
	}
	return payments, nil
}

func (repo *paymentRepository) CountPayments(ctx context.Context, filter *payment.QueryFilter) (int, error) {
	w := repo.filter(filter)
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM payments p"+w.String(), w.args...)
	return n, errors.Wrap(err, "counting payments")
}

func (repo *paymentRepository) GetPayment(ctx context.Context, id int) (payment.Payment, error) {
	var r paymentRow
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(paymentSelect+" WHERE p.id = ?"), id); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return r.payment(), nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := repo.db.Rebind(`UPDATE payments SET
		student_id = ?, amount = ?, due_date = ?, paid_date = ?, is_paid = ?, notes = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, p.StudentID, p.Amount, p.DueDate, p.PaidDate, p.IsPaid, p.Notes, p.ID)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err := checkAffected(res, payment.ErrNotFound); err != nil {
		return payment.Payment{}, err
	}
	return repo.GetPayment(ctx, p.ID)
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM payments WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res, payment.ErrNotFound)
}
