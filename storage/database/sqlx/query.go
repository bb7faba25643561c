package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// where accumulates AND-ed conditions written with "?" placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// build expands slice args (IN clauses) and rebinds the placeholders for db's driver.
func build(db *sqlx.DB, query string, args ...interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "building query")
	}
	return db.Rebind(q), args, nil
}

func selectAll(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args ...interface{}) error {
	q, args, err := build(db, query, args...)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, q, args...)
}

func count(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (int, error) {
	q, args, err := build(db, query, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res affected no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
