// Package postgres stores the ledger in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
    id           UUID PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    name         VARCHAR(100) NOT NULL,
    budget_cents BIGINT NOT NULL DEFAULT 0 CHECK (budget_cents >= 0),
    spent_cents  BIGINT NOT NULL DEFAULT 0 CHECK (spent_cents >= 0),
    color        VARCHAR(7) NOT NULL DEFAULT '#3b82f6',
    icon         TEXT NOT NULL DEFAULT 'Coffee',
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_categories_owner ON categories (owner_id, created_at);

CREATE TABLE IF NOT EXISTS transactions (
    id           UUID PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    name         VARCHAR(100) NOT NULL,
    amount_cents BIGINT NOT NULL,
    category_id  TEXT NOT NULL DEFAULT '',
    date         DATE NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions (owner_id, date DESC, created_at DESC);
`

const (
	categoryColumns    = `id::text, owner_id, name, budget_cents, spent_cents, color, icon, created_at`
	transactionColumns = `id::text, owner_id, name, amount_cents, category_id, date, created_at`
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var (
	_ ledger.Store  = (*Store)(nil)
	_ ledger.Pinger = (*Store)(nil)
)

// Open connects to databaseURL and makes sure the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(NormalizeURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	slog.InfoContext(ctx, "PostgreSQL ledger ready",
		log.FieldComponent, log.ComponentStorage,
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database)

	return &Store{pool: pool, now: time.Now}, nil
}

// NormalizeURL accepts postgresql:// URLs and defaults sslmode to disable.
func NormalizeURL(databaseURL string) string {
	databaseURL = strings.TrimSpace(databaseURL)
	if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if databaseURL != "" && !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL += separator + "sslmode=disable"
	}
	return databaseURL
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) CreateCategory(ctx context.Context, ownerID string, in core.CategoryInput) (core.Category, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (id, owner_id, name, budget_cents, color, icon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+categoryColumns,
		uuid.New(), ownerID, in.Name, in.Budget.Cents, in.Color, string(in.Icon), s.now().UTC())

	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE owner_id = $1
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, ownerID, categoryID string, u core.CategoryUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	id, ok := parseID(categoryID)
	if !ok {
		return ledger.ErrNotFound
	}

	var name, color, icon *string
	var budget, spent *int64
	if u.Name != nil {
		v := strings.TrimSpace(*u.Name)
		name = &v
	}
	if u.Color != nil {
		color = u.Color
	}
	if u.Icon != nil {
		v := string(*u.Icon)
		icon = &v
	}
	if u.Budget != nil {
		budget = &u.Budget.Cents
	}
	if u.Spent != nil {
		spent = &u.Spent.Cents
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE categories
		SET name         = COALESCE($1, name),
		    budget_cents = COALESCE($2, budget_cents),
		    color        = COALESCE($3, color),
		    icon         = COALESCE($4, icon),
		    spent_cents  = COALESCE($5, spent_cents)
		WHERE id = $6 AND owner_id = $7`,
		name, budget, color, icon, spent, id, ownerID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID, categoryID string) error {
	id, ok := parseID(categoryID)
	if !ok {
		return ledger.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, owner_id, name, amount_cents, category_id, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		uuid.New(), ownerID, strings.TrimSpace(in.Name), in.Amount.Cents, in.CategoryID, in.Date.Time, s.now().UTC())

	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE owner_id = $1
		ORDER BY date DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, ownerID, transactionID string, u core.TransactionUpdate) (core.Transaction, error) {
	if err := u.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, ok := parseID(transactionID)
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}

	var name, categoryID *string
	var amount *int64
	var date *time.Time
	if u.Name != nil {
		v := strings.TrimSpace(*u.Name)
		name = &v
	}
	if u.Amount != nil {
		amount = &u.Amount.Cents
	}
	if u.CategoryID != nil {
		categoryID = u.CategoryID
	}
	if u.Date != nil {
		date = &u.Date.Time
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE transactions
		SET name         = COALESCE($1, name),
		    amount_cents = COALESCE($2, amount_cents),
		    category_id  = COALESCE($3, category_id),
		    date         = COALESCE($4, date)
		WHERE id = $5 AND owner_id = $6
		RETURNING `+transactionColumns,
		name, amount, categoryID, date, id, ownerID)

	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	id, ok := parseID(transactionID)
	if !ok {
		return ledger.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// parseID rejects ids that cannot exist in a UUID column instead of letting
// the query fail with a type error.
func parseID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	return id, err == nil
}

func scanCategory(row pgx.Row) (core.Category, error) {
	var (
		c      core.Category
		budget int64
		spent  int64
		icon   string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &budget, &spent, &c.Color, &icon, &c.CreatedAt); err != nil {
		return core.Category{}, err
	}
	c.Budget = core.Cents(budget)
	c.Spent = core.Cents(spent)
	c.Icon = core.Icon(icon)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		amount int64
		date   time.Time
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &amount, &t.CategoryID, &date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.Cents(amount)
	t.Date = core.DateOf(date)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
