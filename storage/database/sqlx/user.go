package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

const userColumns = `id, email, full_name, phone, role, is_active, password_hash, fcm_token, created_at, updated_at, last_login`

var userOrdering = map[string]string{
	"id":         "id",
	"email":      "email",
	"full_name":  "full_name",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           int       `db:"id"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	Phone        string    `db:"phone"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	FCMToken     string    `db:"fcm_token"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		FCMToken:     r.FCMToken,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	w := &where{}
	w.add("LOWER(email) = LOWER(?)", email)
	if len(excludedIDs) > 0 {
		w.add("id NOT IN (?)", excludedIDs)
	}
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM users"+w.String(), w.args...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.db.Rebind(`INSERT INTO users
		(email, full_name, phone, role, is_active, password_hash, fcm_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.QueryRowxContext(ctx, q,
		usr.Email, usr.FullName, usr.Phone, usr.Role, usr.IsActive, usr.PasswordHash, usr.FCMToken,
		usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) filter(filter *user.QueryFilter) *where {
	w := &where{}
	if filter == nil {
		return w
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(full_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", val, val, val)
	}
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo.UTC())
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			w.add("FALSE")
		} else {
			w.add("id IN (?)", filter.IDs)
		}
	}
	if filter.HasFCMToken {
		w.add("fcm_token <> ''")
	}
	return w
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	w := repo.filter(filter)
	q := "SELECT " + userColumns + " FROM users" + w.String() +
		" ORDER BY " + core.OrderingClause(ordering, userOrdering, "id ASC")

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter) (int, error) {
	w := repo.filter(filter)
	n, err := count(ctx, repo.db, "SELECT COUNT(*) FROM users"+w.String(), w.args...)
	if err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	w := &where{}
	switch {
	case filter.ID != 0:
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("LOWER(email) = LOWER(?)", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String())
	if err := repo.db.GetContext(ctx, &r, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.db.Rebind(`UPDATE users SET
		email = ?, full_name = ?, phone = ?, role = ?, is_active = ?, password_hash = ?, fcm_token = ?,
		updated_at = ?, last_login = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		usr.Email, usr.FullName, usr.Phone, usr.Role, usr.IsActive, usr.PasswordHash, usr.FCMToken,
		usr.UpdatedAt, null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()), usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err := checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := build(repo.db, "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, err
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
