// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/ecosystem-api/internal/model"
)

// AccountRepository provides CRUD access to accounts.
type AccountRepository interface {
	// GetAll returns every stored account ordered by ID.
	GetAll(ctx context.Context) ([]model.Account, error)
	// GetByID loads an account; errs.ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	// Create inserts a new account and sets its ID.
	Create(ctx context.Context, a *model.Account) error
	// Update overwrites all mutable columns of an existing account.
	Update(ctx context.Context, a *model.Account) error
	// Delete removes the account row.
	Delete(ctx context.Context, a *model.Account) error
	// InTx runs fn as one unit of work: committed if fn returns nil, rolled back otherwise.
	InTx(ctx context.Context, fn func(AccountRepository) error) error
}
