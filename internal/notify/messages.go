package notify

import (
	"fmt"

	"budgetbuddy/internal/core"
)

func budgetThresholdMessage(to string, c core.Category, threshold int) Message {
	status := fmt.Sprintf("at %d%% of budget", threshold)
	if threshold >= 100 {
		status = "over budget"
	}
	return Message{
		To:      to,
		Subject: "Budget Alert: " + c.Name,
		Body: fmt.Sprintf("Your %s category is %s with $%s spent of $%s budget.",
			c.Name, status, c.Spent, c.Budget),
	}
}

func largeTransactionMessage(to string, t core.Transaction) Message {
	kind, title := "expense", "Expense"
	if t.IsIncome() {
		kind, title = "income", "Income"
	}
	return Message{
		To:      to,
		Subject: "Large " + title + " Alert",
		Body:    fmt.Sprintf("You have a new %s of $%s recorded in your budget.", kind, t.Amount.Abs()),
	}
}
