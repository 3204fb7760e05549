package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/ecosystem-api/internal/errs"
	"github.com/and161185/ecosystem-api/internal/model"
	"github.com/and161185/ecosystem-api/internal/repository"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, auth_id, email, first_name, last_name, middle_name, password, photo_file_name, reset_token`

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct {
	db   *DB
	q    querier
	inTx bool
}

var _ repository.AccountRepository = (*AccountRepo)(nil)

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db, q: db.Pool} }

// GetAll selects every account ordered by id.
func (r *AccountRepo) GetAll(ctx context.Context) ([]model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	defer rows.Close()

	out := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, storageErr("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list accounts", err)
	}
	return out, nil
}

// GetByID selects an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	var a model.Account
	if err := scanAccount(r.q.QueryRow(ctx, q, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, storageErr("get account", err)
	}
	return &a, nil
}

// Create inserts an account and fills a.ID from the sequence.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `INSERT INTO accounts (auth_id, email, first_name, last_name, middle_name, password, photo_file_name, reset_token) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.q.QueryRow(ctx, q,
		a.AuthID, a.Email, a.FirstName, a.LastName, a.MiddleName, a.Password, a.PhotoFileName, a.ResetToken,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateEmail
	}
	if err != nil {
		return storageErr("create account", err)
	}
	return nil
}

// Update rewrites the mutable columns of an account.
func (r *AccountRepo) Update(ctx context.Context, a *model.Account) error {
	const q = `UPDATE accounts SET auth_id=$2, email=$3, first_name=$4, last_name=$5, middle_name=$6, password=$7, photo_file_name=$8, reset_token=$9 WHERE id=$1`
	tag, err := r.q.Exec(ctx, q,
		a.ID, a.AuthID, a.Email, a.FirstName, a.LastName, a.MiddleName, a.Password, a.PhotoFileName, a.ResetToken,
	)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateEmail
	}
	if err != nil {
		return storageErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an account row.
func (r *AccountRepo) Delete(ctx context.Context, a *model.Account) error {
	const q = `DELETE FROM accounts WHERE id=$1`
	tag, err := r.q.Exec(ctx, q, a.ID)
	if err != nil {
		return storageErr("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// InTx runs fn against a transaction-bound repository. Nested calls join the outer transaction.
func (r *AccountRepo) InTx(ctx context.Context, fn func(repository.AccountRepository) error) (err error) {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = storageErr("commit", e)
		}
	}()

	return fn(&AccountRepo{db: r.db, q: tx, inTx: true})
}

func scanAccount(row pgx.Row, a *model.Account) error {
	return row.Scan(&a.ID, &a.AuthID, &a.Email, &a.FirstName, &a.LastName, &a.MiddleName,
		&a.Password, &a.PhotoFileName, &a.ResetToken)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", errs.ErrStorage, op, err)
}
