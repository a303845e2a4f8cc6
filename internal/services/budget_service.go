package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/aggregation"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/sheets"
)

// ErrExportUnconfigured is returned by Export when no summary exporter is
// wired.
var ErrExportUnconfigured = errors.New("summary export not configured")

// MutationResult describes what a ledger write triggered. The write itself
// succeeded; RecomputeErr is set when the ledger could not be re-read
// afterwards, in which case no notifications were evaluated.
type MutationResult struct {
	Transaction  core.Transaction
	Category     core.Category
	Report       aggregation.Report
	RecomputeErr error
	Deliveries   []notify.Delivery
}

// BudgetService runs every ledger mutation through the same pipeline:
// store write, spend recompute, then the notification rules on the
// refreshed data. Only store failures are returned to the caller.
type BudgetService struct {
	store    ledger.Store
	engine   *aggregation.Engine
	policy   *notify.Policy
	dedup    notify.DedupStore
	exporter sheets.SummaryExporter
}

func NewBudgetService(store ledger.Store, policy *notify.Policy, dedup notify.DedupStore) *BudgetService {
	return &BudgetService{
		store:  store,
		engine: aggregation.New(store),
		policy: policy,
		dedup:  dedup,
	}
}

// WithExporter enables Export.
func (s *BudgetService) WithExporter(exporter sheets.SummaryExporter) *BudgetService {
	s.exporter = exporter
	return s
}

func (s *BudgetService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.ListCategories(ctx, ownerID)
}

func (s *BudgetService) CreateCategory(ctx context.Context, owner core.Owner, in core.CategoryInput) (MutationResult, error) {
	c, err := s.store.CreateCategory(ctx, owner.ID, in)
	if err != nil {
		return MutationResult{}, fmt.Errorf("create category: %w", err)
	}
	result := s.afterMutation(ctx, owner, nil)
	result.Category = c
	return result, nil
}

// AddPresetCategories creates the starter category set. It stops at the
// first store failure and returns the categories created so far.
func (s *BudgetService) AddPresetCategories(ctx context.Context, owner core.Owner) ([]core.Category, error) {
	presets := core.PresetCategories()
	created := make([]core.Category, 0, len(presets))
	for _, in := range presets {
		c, err := s.store.CreateCategory(ctx, owner.ID, in)
		if err != nil {
			return created, fmt.Errorf("create preset %q: %w", in.Name, err)
		}
		created = append(created, c)
	}

	slog.InfoContext(ctx, "Preset categories added",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOwnerID, owner.ID,
		log.FieldCount, len(created))

	s.afterMutation(ctx, owner, nil)
	return created, nil
}

// UpdateCategory applies user edits. Spent is owned by the aggregation
// engine and cannot be set here.
func (s *BudgetService) UpdateCategory(ctx context.Context, owner core.Owner, categoryID string, u core.CategoryUpdate) (MutationResult, error) {
	u.Spent = nil
	if err := s.store.UpdateCategory(ctx, owner.ID, categoryID, u); err != nil {
		return MutationResult{}, fmt.Errorf("update category: %w", err)
	}
	result := s.afterMutation(ctx, owner, nil)
	for _, c := range result.Report.Categories {
		if c.ID == categoryID {
			result.Category = c
		}
	}
	return result, nil
}

// DeleteCategory removes the category. Its transactions stay and count as
// uncategorized from then on.
func (s *BudgetService) DeleteCategory(ctx context.Context, owner core.Owner, categoryID string) (MutationResult, error) {
	if err := s.store.DeleteCategory(ctx, owner.ID, categoryID); err != nil {
		return MutationResult{}, fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOwnerID, owner.ID,
		log.FieldCategoryID, categoryID)
	return s.afterMutation(ctx, owner, nil), nil
}

// ListTransactions returns the owner's transactions newest first, capped at
// limit when limit is positive.
func (s *BudgetService) ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	return core.RecentTransactions(txs, limit), nil
}

func (s *BudgetService) CreateTransaction(ctx context.Context, owner core.Owner, in core.TransactionInput) (MutationResult, error) {
	t, err := s.store.CreateTransaction(ctx, owner.ID, in)
	if err != nil {
		return MutationResult{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOwnerID, owner.ID,
		log.FieldTransactionID, t.ID,
		log.FieldCategoryID, t.CategoryID,
		log.FieldAmountCents, t.Amount.Cents)

	result := s.afterMutation(ctx, owner, &t)
	result.Transaction = t
	return result, nil
}

func (s *BudgetService) UpdateTransaction(ctx context.Context, owner core.Owner, transactionID string, u core.TransactionUpdate) (MutationResult, error) {
	t, err := s.store.UpdateTransaction(ctx, owner.ID, transactionID, u)
	if err != nil {
		return MutationResult{}, fmt.Errorf("update transaction: %w", err)
	}
	result := s.afterMutation(ctx, owner, &t)
	result.Transaction = t
	return result, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, owner core.Owner, transactionID string) (MutationResult, error) {
	if err := s.store.DeleteTransaction(ctx, owner.ID, transactionID); err != nil {
		return MutationResult{}, fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOwnerID, owner.ID,
		log.FieldTransactionID, transactionID)
	return s.afterMutation(ctx, owner, nil), nil
}

// Recompute resyncs every category's Spent and re-evaluates the budget
// thresholds. Unlike the mutation methods it returns a ledger read failure.
func (s *BudgetService) Recompute(ctx context.Context, owner core.Owner) (MutationResult, error) {
	report, err := s.engine.RecomputeSpending(ctx, owner.ID)
	if err != nil {
		return MutationResult{}, fmt.Errorf("recompute spending: %w", err)
	}
	return MutationResult{
		Report:     report,
		Deliveries: s.policy.EvaluateBudgetThresholds(ctx, owner, report.Categories),
	}, nil
}

// Summary reads the ledger and derives the dashboard totals.
func (s *BudgetService) Summary(ctx context.Context, ownerID string, recent int) (core.Summary, error) {
	categories, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list categories: %w", err)
	}
	transactions, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.Summarize(categories, transactions, recent), nil
}

// ResetNotifications forgets every notification sent to the owner so that
// conditions still holding fire again.
func (s *BudgetService) ResetNotifications(ctx context.Context, ownerID string) (int, error) {
	n, err := s.dedup.Reset(ctx, notify.OwnerKeyPrefix(ownerID))
	if err != nil {
		return 0, fmt.Errorf("reset notifications: %w", err)
	}
	fields := log.NewFields().
		WithComponent(log.ComponentDedup).
		WithOperation(log.OpReset).
		WithOwner(ownerID)
	fields[log.FieldCount] = n
	slog.InfoContext(ctx, "Notification history reset", fields.ToSlice()...)
	return n, nil
}

// Export writes the owner's current summary through the configured
// exporter and returns where it landed.
func (s *BudgetService) Export(ctx context.Context, ownerID string) (string, error) {
	if s.exporter == nil {
		return "", ErrExportUnconfigured
	}
	summary, err := s.Summary(ctx, ownerID, 0)
	if err != nil {
		return "", err
	}
	ref, err := s.exporter.ExportSummary(ctx, ownerID, summary)
	if err != nil {
		return "", fmt.Errorf("export summary: %w", err)
	}
	return ref, nil
}

// afterMutation recomputes spend and runs the notification rules. Nothing
// here fails the mutation that triggered it.
func (s *BudgetService) afterMutation(ctx context.Context, owner core.Owner, changed *core.Transaction) MutationResult {
	var result MutationResult

	report, err := s.engine.RecomputeSpending(ctx, owner.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Spend recompute failed after ledger write",
			log.FieldComponent, log.ComponentAggregation,
			log.FieldOperation, log.OpRecompute,
			log.FieldOwnerID, owner.ID,
			log.FieldError, err)
		result.RecomputeErr = err
		return result
	}
	result.Report = report
	if failed := report.Err(); failed != nil {
		slog.WarnContext(ctx, "Some category totals could not be written",
			log.FieldComponent, log.ComponentAggregation,
			log.FieldOperation, log.OpRecompute,
			log.FieldOwnerID, owner.ID,
			log.FieldError, failed)
	}

	result.Deliveries = s.policy.EvaluateBudgetThresholds(ctx, owner, report.Categories)
	if changed != nil {
		result.Deliveries = append(result.Deliveries, s.policy.EvaluateLargeTransaction(ctx, owner, *changed)...)
	}
	return result
}
