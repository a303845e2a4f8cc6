package aggregation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbuddy/internal/core"
)

type fakeLedger struct {
	categories   []core.Category
	transactions []core.Transaction
	writes       int
	failOn       map[string]error
	listErr      error
}

func (f *fakeLedger) ListCategories(context.Context, string) ([]core.Category, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Category(nil), f.categories...), nil
}

func (f *fakeLedger) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return append([]core.Transaction(nil), f.transactions...), nil
}

func (f *fakeLedger) UpdateCategory(_ context.Context, _ string, id string, u core.CategoryUpdate) error {
	if err := f.failOn[id]; err != nil {
		return err
	}
	f.writes++
	for i := range f.categories {
		if f.categories[i].ID == id {
			u.Apply(&f.categories[i])
		}
	}
	return nil
}

func (f *fakeLedger) spent(id string) core.Money {
	for _, c := range f.categories {
		if c.ID == id {
			return c.Spent
		}
	}
	return core.Money{}
}

func expense(cents int64, categoryID string) core.Transaction {
	return core.Transaction{Amount: core.Cents(-cents), CategoryID: categoryID, Date: core.NewDate(2026, 10, 1)}
}

func TestComputeSpending(t *testing.T) {
	spent := ComputeSpending([]core.Transaction{
		expense(30000, "c1"),
		expense(15000, "c1"),
		expense(12000, ""),
		{Amount: core.Cents(500000), CategoryID: "c1"},
		{Amount: core.Cents(0), CategoryID: "c2"},
		expense(999, "c2"),
	})

	assert.Equal(t, core.Cents(45000), spent["c1"])
	assert.Equal(t, core.Cents(999), spent["c2"])
	assert.NotContains(t, spent, "")
}

func TestRecomputeSpendingScenario(t *testing.T) {
	ledger := &fakeLedger{
		categories:   []core.Category{{ID: "c1", Name: "Food", Budget: core.Cents(50000)}},
		transactions: []core.Transaction{expense(30000, "c1")},
	}
	engine := New(ledger)

	report, err := engine.RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, core.Cents(30000), ledger.spent("c1"))
	assert.Equal(t, 1, report.Updated)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, core.Cents(30000), report.Categories[0].Spent)

	ledger.transactions = append(ledger.transactions, expense(15000, "c1"))
	_, err = engine.RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, core.Cents(45000), ledger.spent("c1"))
}

func TestRecomputeSpendingIsIdempotent(t *testing.T) {
	ledger := &fakeLedger{
		categories: []core.Category{
			{ID: "c1", Budget: core.Cents(50000)},
			{ID: "c2", Budget: core.Cents(10000), Spent: core.Cents(7777)},
		},
		transactions: []core.Transaction{expense(1234, "c1"), expense(1, "c1"), expense(333, "c2")},
	}
	engine := New(ledger)

	_, err := engine.RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)
	firstWrites := ledger.writes
	snapshot := append([]core.Category(nil), ledger.categories...)

	report, err := engine.RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, firstWrites, ledger.writes, "second pass must not write")
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, snapshot, ledger.categories)
}

func TestRecomputeSpendingConservationAndExclusion(t *testing.T) {
	ledger := &fakeLedger{
		categories: []core.Category{{ID: "a"}, {ID: "b"}, {ID: "c", Spent: core.Cents(5000)}},
		transactions: []core.Transaction{
			expense(1050, "a"),
			expense(2075, "b"),
			expense(333, "a"),
			expense(12000, ""),                          // uncategorized
			expense(4000, "deleted"),                    // dangling reference
			{Amount: core.Cents(9000), CategoryID: "b"}, // income
		},
	}

	_, err := New(ledger).RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)

	var total core.Money
	for _, c := range ledger.categories {
		total = total.Add(c.Spent)
	}
	assert.Equal(t, core.Cents(1050+2075+333), total)
	assert.Equal(t, core.Cents(0), ledger.spent("c"), "stale spend is cleared")
}

func TestRecomputeSpendingCollectsFailures(t *testing.T) {
	boom := errors.New("permission denied")
	ledger := &fakeLedger{
		categories:   []core.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}},
		transactions: []core.Transaction{expense(100, "a"), expense(200, "b"), expense(300, "c")},
		failOn:       map[string]error{"b": boom},
	}

	report, err := New(ledger).RecomputeSpending(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b", report.Failures[0].CategoryID)
	assert.ErrorIs(t, report.Err(), boom)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, core.Cents(100), ledger.spent("a"))
	assert.Equal(t, core.Cents(300), ledger.spent("c"))
	assert.Equal(t, core.Cents(0), report.Categories[1].Spent, "failed write keeps the persisted value")
}

func TestRecomputeSpendingListError(t *testing.T) {
	ledger := &fakeLedger{listErr: errors.New("network down")}

	_, err := New(ledger).RecomputeSpending(context.Background(), "u1")
	assert.ErrorContains(t, err, "list categories")
}

func TestReportErrNilWhenClean(t *testing.T) {
	assert.NoError(t, Report{}.Err())
}
