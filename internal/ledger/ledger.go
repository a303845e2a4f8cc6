// Package ledger defines the ports the budget engine uses to reach the
// category and transaction store.
//
// Every operation is scoped to an owner: a record that exists but belongs to
// another owner is reported as ErrNotFound.
package ledger

import (
	"context"
	"errors"

	"budgetbuddy/internal/core"
)

var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	CategoryStore interface {
		// CreateCategory stores a new category with Spent set to zero.
		CreateCategory(ctx context.Context, ownerID string, in core.CategoryInput) (core.Category, error)
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		UpdateCategory(ctx context.Context, ownerID, categoryID string, u core.CategoryUpdate) error
		// DeleteCategory removes the category only. Transactions that point
		// at it are left in place and read as uncategorized.
		DeleteCategory(ctx context.Context, ownerID, categoryID string) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error)
		// ListTransactions returns the owner's transactions in no particular
		// order.
		ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, ownerID, transactionID string, u core.TransactionUpdate) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, transactionID string) error
	}

	Store interface {
		CategoryStore
		TransactionStore
	}

	// Pinger is implemented by stores that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
