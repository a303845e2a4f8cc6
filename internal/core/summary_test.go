package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLedger() ([]Category, []Transaction) {
	categories := []Category{
		{ID: "food", Name: "Food", Budget: Cents(50000), Spent: Cents(30000)},
		{ID: "fun", Name: "Fun", Budget: Cents(10000), Spent: Cents(12000)},
		{ID: "misc", Name: "Misc", Budget: Cents(0), Spent: Cents(0)},
	}
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		{ID: "t1", Amount: Cents(-30000), CategoryID: "food", Date: NewDate(2026, 10, 2), CreatedAt: created},
		{ID: "t2", Amount: Cents(-12000), CategoryID: "fun", Date: NewDate(2026, 10, 5), CreatedAt: created},
		{ID: "t3", Amount: Cents(250000), Date: NewDate(2026, 10, 1), CreatedAt: created},
		{ID: "t4", Amount: Cents(-8000), Date: NewDate(2026, 10, 5), CreatedAt: created.Add(time.Hour)},
		{ID: "t5", Amount: Cents(0), Date: NewDate(2026, 9, 30), CreatedAt: created},
	}
	return categories, transactions
}

func TestTotals(t *testing.T) {
	categories, transactions := sampleLedger()

	assert.Equal(t, Cents(42000), TotalSpent(categories))
	assert.Equal(t, Cents(60000), TotalBudget(categories))
	assert.Equal(t, Cents(18000), RemainingBudget(categories))
	assert.Equal(t, Cents(250000), TotalIncome(transactions))
	assert.Equal(t, Cents(50000), TotalExpenses(transactions), "uncategorized expenses count toward total expenses")
	assert.Equal(t, Cents(200000), Balance(transactions))
}

func TestCategoryDerivedValues(t *testing.T) {
	categories, _ := sampleLedger()

	assert.Equal(t, 60.0, categories[0].UsagePercent())
	assert.False(t, categories[0].OverBudget())
	assert.Equal(t, Cents(20000), categories[0].Remaining())

	assert.Equal(t, 120.0, categories[1].UsagePercent())
	assert.True(t, categories[1].OverBudget())
	assert.Equal(t, Cents(-2000), categories[1].Remaining())

	assert.Equal(t, 0.0, categories[2].UsagePercent())
	assert.False(t, categories[2].OverBudget())
}

func TestSortByDateDesc(t *testing.T) {
	_, transactions := sampleLedger()

	sorted := SortByDateDesc(transactions)
	ids := make([]string, len(sorted))
	for i, tx := range sorted {
		ids[i] = tx.ID
	}

	// t4 and t2 share a date; t4 was written later.
	assert.Equal(t, []string{"t4", "t2", "t1", "t3", "t5"}, ids)
	assert.Equal(t, "t1", transactions[0].ID, "input is not reordered")
}

func TestRecentTransactions(t *testing.T) {
	_, transactions := sampleLedger()

	assert.Len(t, RecentTransactions(transactions, 2), 2)
	assert.Len(t, RecentTransactions(transactions, 10), 5)
	assert.Empty(t, RecentTransactions(nil, 5))
}

func TestSummarize(t *testing.T) {
	categories, transactions := sampleLedger()

	s := Summarize(categories, transactions, DefaultRecentTransactions)

	assert.Equal(t, Cents(42000), s.TotalSpent)
	assert.Equal(t, Cents(200000), s.Balance)
	require.Len(t, s.Categories, 3)
	assert.Equal(t, 60.0, s.Categories[0].ShareOfExpenses)
	assert.Equal(t, 24.0, s.Categories[1].ShareOfExpenses)
	assert.True(t, s.Categories[1].OverBudget)
	require.Len(t, s.Recent, 5)
	assert.Equal(t, "t4", s.Recent[0].ID)
}
