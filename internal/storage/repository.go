package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the ledger and the notification dedup table in a
// single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ ledger.Store      = (*SQLiteRepository)(nil)
	_ ledger.Pinger     = (*SQLiteRepository)(nil)
	_ notify.DedupStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serializing here avoids SQLITE_BUSY under
	// concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// WithClock replaces the clock used for CreatedAt stamps.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, ownerID string, in core.CategoryInput) (core.Category, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}

	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        in.Name,
		BudgetCents: in.Budget.Cents,
		Color:       in.Color,
		Icon:        string(in.Icon),
		CreatedAt:   r.now().UnixMilli(),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOwnerID, ownerID,
		log.FieldCategoryID, row.ID,
		log.FieldBudgetCents, row.BudgetCents)

	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, ownerID, categoryID string, u core.CategoryUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	params := UpdateCategoryParams{ID: categoryID, OwnerID: ownerID}
	if u.Name != nil {
		params.Name = sql.NullString{String: strings.TrimSpace(*u.Name), Valid: true}
	}
	if u.Budget != nil {
		params.BudgetCents = sql.NullInt64{Int64: u.Budget.Cents, Valid: true}
	}
	if u.Color != nil {
		params.Color = sql.NullString{String: *u.Color, Valid: true}
	}
	if u.Icon != nil {
		params.Icon = sql.NullString{String: string(*u.Icon), Valid: true}
	}
	if u.Spent != nil {
		params.SpentCents = sql.NullInt64{Int64: u.Spent.Cents, Valid: true}
	}

	n, err := r.queries.UpdateCategory(ctx, params)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, categoryID string) error {
	n, err := r.queries.DeleteCategory(ctx, categoryID, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		AmountCents: in.Amount.Cents,
		CategoryID:  in.CategoryID,
		Date:        in.Date.String(),
		CreatedAt:   r.now().UnixMilli(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOwnerID, ownerID,
		log.FieldTransactionID, row.ID,
		log.FieldAmountCents, row.AmountCents)

	return transactionFromRow(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, ownerID, transactionID string, u core.TransactionUpdate) (core.Transaction, error) {
	if err := u.Validate(); err != nil {
		return core.Transaction{}, err
	}

	params := UpdateTransactionParams{ID: transactionID, OwnerID: ownerID}
	if u.Name != nil {
		params.Name = sql.NullString{String: strings.TrimSpace(*u.Name), Valid: true}
	}
	if u.Amount != nil {
		params.AmountCents = sql.NullInt64{Int64: u.Amount.Cents, Valid: true}
	}
	if u.CategoryID != nil {
		params.CategoryID = sql.NullString{String: *u.CategoryID, Valid: true}
	}
	if u.Date != nil {
		params.Date = sql.NullString{String: u.Date.String(), Valid: true}
	}

	row, err := r.queries.UpdateTransaction(ctx, params)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return transactionFromRow(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	n, err := r.queries.DeleteTransaction(ctx, transactionID, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Has implements notify.DedupStore.
func (r *SQLiteRepository) Has(ctx context.Context, key string) (bool, error) {
	ok, err := r.queries.HasNotification(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check notification %q: %w", key, err)
	}
	return ok, nil
}

// MarkSent implements notify.DedupStore. The first recorded timestamp wins.
func (r *SQLiteRepository) MarkSent(ctx context.Context, key string, sentAt time.Time) error {
	if err := r.queries.MarkNotificationSent(ctx, NotificationDedup{Key: key, SentAt: sentAt.UnixMilli()}); err != nil {
		return fmt.Errorf("mark notification %q: %w", key, err)
	}
	return nil
}

// SentAt reports when key was first marked.
func (r *SQLiteRepository) SentAt(ctx context.Context, key string) (time.Time, bool, error) {
	row, err := r.queries.GetNotification(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get notification %q: %w", key, err)
	}
	return time.UnixMilli(row.SentAt).UTC(), true, nil
}

func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := r.queries.PurgeNotificationsBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) Reset(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("reset notifications: empty prefix")
	}
	n, err := r.queries.DeleteNotificationsByPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("reset notifications: %w", err)
	}
	return int(n), nil
}

func categoryFromRow(row Category) core.Category {
	return core.Category{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Budget:    core.Cents(row.BudgetCents),
		Spent:     core.Cents(row.SpentCents),
		Color:     row.Color,
		Icon:      core.Icon(row.Icon),
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has bad date %q: %w", row.ID, row.Date, err)
	}
	return core.Transaction{
		ID:         row.ID,
		OwnerID:    row.OwnerID,
		Name:       row.Name,
		Amount:     core.Cents(row.AmountCents),
		CategoryID: row.CategoryID,
		Date:       date,
		CreatedAt:  time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}
