package storage

// Row types mirror the tables in migrations/. Timestamps are unix
// milliseconds and dates are YYYY-MM-DD text.

type Category struct {
	ID          string
	OwnerID     string
	Name        string
	BudgetCents int64
	SpentCents  int64
	Color       string
	Icon        string
	CreatedAt   int64
}

type Transaction struct {
	ID          string
	OwnerID     string
	Name        string
	AmountCents int64
	CategoryID  string
	Date        string
	CreatedAt   int64
}

type NotificationDedup struct {
	Key    string
	SentAt int64
}
