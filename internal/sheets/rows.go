package sheets

import (
	"strconv"
	"time"

	"budgetbuddy/internal/core"
)

// Header is the first row of every exported summary table.
var Header = []string{"Category", "Budget", "Spent", "Remaining", "Usage %", "Share of expenses %"}

// SummaryRows lays the summary out as a table: a title row, the header, one
// row per category and a closing block of totals. Amounts are plain decimal
// strings so spreadsheets parse them as numbers.
func SummaryRows(ownerID string, s core.Summary, exportedAt time.Time) [][]string {
	rows := make([][]string, 0, len(s.Categories)+8)
	rows = append(rows,
		[]string{"Budget summary", ownerID, exportedAt.UTC().Format(time.RFC3339)},
		append([]string(nil), Header...),
	)
	for _, u := range s.Categories {
		rows = append(rows, []string{
			u.Category.Name,
			u.Category.Budget.String(),
			u.Category.Spent.String(),
			u.Remaining.String(),
			percent(u.UsagePercent),
			percent(u.ShareOfExpenses),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"Total budget", s.TotalBudget.String()},
		[]string{"Total spent", s.TotalSpent.String()},
		[]string{"Remaining", s.Remaining.String()},
		[]string{"Income", s.TotalIncome.String()},
		[]string{"Expenses", s.TotalExpenses.String()},
		[]string{"Balance", s.Balance.String()},
	)
	return rows
}

func percent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
