package core

import (
	"sort"
)

// DefaultRecentTransactions is how many transactions the dashboard lists.
const DefaultRecentTransactions = 5

type (
	// CategoryUsage is a category together with the values derived from it
	// for display.
	CategoryUsage struct {
		Category        Category
		Remaining       Money
		UsagePercent    float64
		ShareOfExpenses float64
		OverBudget      bool
	}

	// Summary holds every derived read value for one owner's ledger.
	Summary struct {
		TotalSpent    Money
		TotalBudget   Money
		Remaining     Money
		TotalIncome   Money
		TotalExpenses Money
		Balance       Money
		Categories    []CategoryUsage
		Recent        []Transaction
	}
)

func TotalSpent(categories []Category) Money {
	var total Money
	for _, c := range categories {
		total = total.Add(c.Spent)
	}
	return total
}

func TotalBudget(categories []Category) Money {
	var total Money
	for _, c := range categories {
		total = total.Add(c.Budget)
	}
	return total
}

// RemainingBudget is total budget minus total spent. It goes negative when
// the owner is over budget overall.
func RemainingBudget(categories []Category) Money {
	return TotalBudget(categories).Sub(TotalSpent(categories))
}

// TotalIncome sums the positive transaction amounts.
func TotalIncome(transactions []Transaction) Money {
	var total Money
	for _, t := range transactions {
		if t.IsIncome() {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// TotalExpenses sums the absolute value of every negative amount,
// categorized or not.
func TotalExpenses(transactions []Transaction) Money {
	var total Money
	for _, t := range transactions {
		if t.IsExpense() {
			total = total.Add(t.Amount.Abs())
		}
	}
	return total
}

func Balance(transactions []Transaction) Money {
	return TotalIncome(transactions).Sub(TotalExpenses(transactions))
}

// UsagePercent is spent over budget in percent; zero when there is no budget.
func (c Category) UsagePercent() float64 {
	return c.Spent.Percent(c.Budget)
}

func (c Category) Remaining() Money {
	return c.Budget.Sub(c.Spent)
}

func (c Category) OverBudget() bool {
	return c.Budget.IsPositive() && c.Spent.Cents > c.Budget.Cents
}

// ShareOfExpenses is the category's spend as a percentage of all expenses.
func ShareOfExpenses(c Category, totalExpenses Money) float64 {
	return c.Spent.Percent(totalExpenses)
}

// SortByDateDesc returns a copy of transactions ordered newest first. Equal
// dates fall back to creation time, newest first.
func SortByDateDesc(transactions []Transaction) []Transaction {
	out := make([]Transaction, len(transactions))
	copy(out, transactions)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RecentTransactions returns at most n transactions, newest first.
func RecentTransactions(transactions []Transaction, n int) []Transaction {
	sorted := SortByDateDesc(transactions)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Summarize computes the dashboard view over the given sets.
func Summarize(categories []Category, transactions []Transaction, recent int) Summary {
	expenses := TotalExpenses(transactions)
	usage := make([]CategoryUsage, 0, len(categories))
	for _, c := range categories {
		usage = append(usage, CategoryUsage{
			Category:        c,
			Remaining:       c.Remaining(),
			UsagePercent:    c.UsagePercent(),
			ShareOfExpenses: ShareOfExpenses(c, expenses),
			OverBudget:      c.OverBudget(),
		})
	}

	return Summary{
		TotalSpent:    TotalSpent(categories),
		TotalBudget:   TotalBudget(categories),
		Remaining:     RemainingBudget(categories),
		TotalIncome:   TotalIncome(transactions),
		TotalExpenses: expenses,
		Balance:       Balance(transactions),
		Categories:    usage,
		Recent:        RecentTransactions(transactions, recent),
	}
}
