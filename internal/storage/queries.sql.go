package storage

import (
	"context"
	"database/sql"
)

const createCategory = `
INSERT INTO categories (id, owner_id, name, budget_cents, spent_cents, color, icon, created_at)
VALUES (?, ?, ?, ?, 0, ?, ?, ?)
RETURNING id, owner_id, name, budget_cents, spent_cents, color, icon, created_at
`

type CreateCategoryParams struct {
	ID          string
	OwnerID     string
	Name        string
	BudgetCents int64
	Color       string
	Icon        string
	CreatedAt   int64
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.BudgetCents,
		arg.Color,
		arg.Icon,
		arg.CreatedAt,
	)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.BudgetCents,
		&i.SpentCents,
		&i.Color,
		&i.Icon,
		&i.CreatedAt,
	)
	return i, err
}

const listCategories = `
SELECT id, owner_id, name, budget_cents, spent_cents, color, icon, created_at
FROM categories
WHERE owner_id = ?
ORDER BY created_at, id
`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.BudgetCents,
			&i.SpentCents,
			&i.Color,
			&i.Icon,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCategory = `
UPDATE categories
SET name         = COALESCE(?, name),
    budget_cents = COALESCE(?, budget_cents),
    color        = COALESCE(?, color),
    icon         = COALESCE(?, icon),
    spent_cents  = COALESCE(?, spent_cents)
WHERE id = ? AND owner_id = ?
`

type UpdateCategoryParams struct {
	Name        sql.NullString
	BudgetCents sql.NullInt64
	Color       sql.NullString
	Icon        sql.NullString
	SpentCents  sql.NullInt64
	ID          string
	OwnerID     string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCategory,
		arg.Name,
		arg.BudgetCents,
		arg.Color,
		arg.Icon,
		arg.SpentCents,
		arg.ID,
		arg.OwnerID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCategory = `
DELETE FROM categories WHERE id = ? AND owner_id = ?
`

func (q *Queries) DeleteCategory(ctx context.Context, id, ownerID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createTransaction = `
INSERT INTO transactions (id, owner_id, name, amount_cents, category_id, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, owner_id, name, amount_cents, category_id, date, created_at
`

type CreateTransactionParams struct {
	ID          string
	OwnerID     string
	Name        string
	AmountCents int64
	CategoryID  string
	Date        string
	CreatedAt   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.AmountCents,
		arg.CategoryID,
		arg.Date,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.AmountCents,
		&i.CategoryID,
		&i.Date,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactions = `
SELECT id, owner_id, name, amount_cents, category_id, date, created_at
FROM transactions
WHERE owner_id = ?
ORDER BY date DESC, created_at DESC
`

func (q *Queries) ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.AmountCents,
			&i.CategoryID,
			&i.Date,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransaction = `
UPDATE transactions
SET name         = COALESCE(?, name),
    amount_cents = COALESCE(?, amount_cents),
    category_id  = COALESCE(?, category_id),
    date         = COALESCE(?, date)
WHERE id = ? AND owner_id = ?
RETURNING id, owner_id, name, amount_cents, category_id, date, created_at
`

type UpdateTransactionParams struct {
	Name        sql.NullString
	AmountCents sql.NullInt64
	CategoryID  sql.NullString
	Date        sql.NullString
	ID          string
	OwnerID     string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Name,
		arg.AmountCents,
		arg.CategoryID,
		arg.Date,
		arg.ID,
		arg.OwnerID,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.AmountCents,
		&i.CategoryID,
		&i.Date,
		&i.CreatedAt,
	)
	return i, err
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ? AND owner_id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const hasNotification = `
SELECT EXISTS (SELECT 1 FROM notification_dedup WHERE key = ?)
`

func (q *Queries) HasNotification(ctx context.Context, key string) (bool, error) {
	row := q.db.QueryRowContext(ctx, hasNotification, key)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const markNotificationSent = `
INSERT INTO notification_dedup (key, sent_at) VALUES (?, ?)
ON CONFLICT (key) DO NOTHING
`

func (q *Queries) MarkNotificationSent(ctx context.Context, arg NotificationDedup) error {
	_, err := q.db.ExecContext(ctx, markNotificationSent, arg.Key, arg.SentAt)
	return err
}

const getNotification = `
SELECT key, sent_at FROM notification_dedup WHERE key = ?
`

func (q *Queries) GetNotification(ctx context.Context, key string) (NotificationDedup, error) {
	row := q.db.QueryRowContext(ctx, getNotification, key)
	var i NotificationDedup
	err := row.Scan(&i.Key, &i.SentAt)
	return i, err
}

const purgeNotificationsBefore = `
DELETE FROM notification_dedup WHERE sent_at < ?
`

func (q *Queries) PurgeNotificationsBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, purgeNotificationsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteNotificationsByPrefix = `
DELETE FROM notification_dedup WHERE substr(key, 1, length(?)) = ?
`

func (q *Queries) DeleteNotificationsByPrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNotificationsByPrefix, prefix, prefix)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
