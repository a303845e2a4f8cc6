package backend

import (
	"fmt"

	"budgetbuddy/internal/config"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/services"
)

// NewBudgetService wires the orchestration service over res with the
// notification policy configured in appConfig.
func NewBudgetService(appConfig *config.Config, res *BackendResult) (*services.BudgetService, error) {
	notifyConfig, err := appConfig.NotifyConfig()
	if err != nil {
		return nil, fmt.Errorf("notification config: %w", err)
	}
	policy := notify.NewPolicy(res.Dedup, res.Transport, notifyConfig)
	svc := services.NewBudgetService(res.Ledger, policy, res.Dedup)
	if res.Exporter != nil {
		svc.WithExporter(res.Exporter)
	}
	return svc, nil
}
