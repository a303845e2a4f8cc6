// Package aggregation keeps each category's Spent value in line with the
// transaction ledger.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
)

// Ledger is the slice of the ledger store the engine needs.
type Ledger interface {
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	UpdateCategory(ctx context.Context, ownerID, categoryID string, u core.CategoryUpdate) error
}

type (
	// CategoryFailure records a Spent write that the store rejected.
	CategoryFailure struct {
		CategoryID string
		Name       string
		Err        error
	}

	// Report describes one recompute pass.
	Report struct {
		OwnerID   string
		Updated   int
		Unchanged int
		Failures  []CategoryFailure
		// Categories is the owner's category set as persisted after the
		// pass. A category whose write failed keeps its previous Spent.
		Categories []core.Category
	}
)

func (f CategoryFailure) Error() string {
	return fmt.Sprintf("category %s (%s): %v", f.CategoryID, f.Name, f.Err)
}

func (f CategoryFailure) Unwrap() error { return f.Err }

// Err joins every per-category failure, or returns nil when all writes
// succeeded.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type Engine struct {
	ledger Ledger
}

func New(ledger Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// ComputeSpending folds expense transactions into per-category totals of
// absolute spend. Income, zero amounts and uncategorized transactions do not
// contribute.
func ComputeSpending(transactions []core.Transaction) map[string]core.Money {
	spent := make(map[string]core.Money)
	for _, t := range transactions {
		if !t.IsExpense() || !t.HasCategory() {
			continue
		}
		spent[t.CategoryID] = spent[t.CategoryID].Add(t.Amount.Abs())
	}
	return spent
}

// RecomputeSpending rebuilds every category's Spent for the owner from a
// fresh read of the ledger, writing only the values that changed.
//
// Transactions pointing at an unknown category are ignored. A failed write
// is recorded in the report and does not stop the pass; only a failure to
// read the ledger is returned as an error.
func (e *Engine) RecomputeSpending(ctx context.Context, ownerID string) (Report, error) {
	report := Report{OwnerID: ownerID}

	transactions, err := e.ledger.ListTransactions(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("list transactions: %w", err)
	}
	categories, err := e.ledger.ListCategories(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}

	spent := ComputeSpending(transactions)

	report.Categories = make([]core.Category, 0, len(categories))
	for _, c := range categories {
		want := spent[c.ID]
		if want == c.Spent {
			report.Unchanged++
			report.Categories = append(report.Categories, c)
			continue
		}

		if err := e.ledger.UpdateCategory(ctx, ownerID, c.ID, core.CategoryUpdate{Spent: &want}); err != nil {
			slog.ErrorContext(ctx, "Failed to update category spend",
				log.FieldComponent, log.ComponentAggregation,
				log.FieldOwnerID, ownerID,
				log.FieldCategoryID, c.ID,
				log.FieldError, err)
			report.Failures = append(report.Failures, CategoryFailure{CategoryID: c.ID, Name: c.Name, Err: err})
			report.Categories = append(report.Categories, c)
			continue
		}

		slog.DebugContext(ctx, "Category spend updated",
			log.FieldComponent, log.ComponentAggregation,
			log.FieldOwnerID, ownerID,
			log.FieldCategoryID, c.ID,
			"from_cents", c.Spent.Cents,
			"to_cents", want.Cents)

		c.Spent = want
		report.Updated++
		report.Categories = append(report.Categories, c)
	}

	slog.InfoContext(ctx, "Spending recomputed",
		log.FieldComponent, log.ComponentAggregation,
		log.FieldOwnerID, ownerID,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"failed", len(report.Failures))

	return report, nil
}
