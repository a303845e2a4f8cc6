package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbuddy/internal/aggregation"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrMissingOwner, http.StatusUnauthorized},
		{fmt.Errorf("delete category: %w", ledger.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("create transaction: %w", core.ErrEmptyName), http.StatusUnprocessableEntity},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{ErrInvalidLimit, http.StatusUnprocessableEntity},
		{services.ErrExportUnconfigured, http.StatusServiceUnavailable},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestNewTransactionView(t *testing.T) {
	v := newTransactionView(core.Transaction{
		ID:        "t1",
		Name:      "Rent",
		Amount:    core.Cents(-120000),
		Date:      core.NewDate(2026, 10, 1),
		CreatedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "-1200.00", v.Amount)
	assert.Equal(t, "expense", v.Type)
	assert.Equal(t, "2026-10-01", v.Date)
	assert.Equal(t, "2026-10-01T08:00:00Z", v.CreatedAt)

	assert.Equal(t, "income", newTransactionView(core.Transaction{Amount: core.Cents(0)}).Type)
}

func TestNewSummaryView_TrimsRecent(t *testing.T) {
	txs := []core.Transaction{
		{ID: "a", Amount: core.Cents(-100), Date: core.NewDate(2026, 10, 3)},
		{ID: "b", Amount: core.Cents(-100), Date: core.NewDate(2026, 10, 2)},
		{ID: "c", Amount: core.Cents(-100), Date: core.NewDate(2026, 10, 1)},
	}
	sum := core.Summarize(nil, txs, -1)

	v := newSummaryView(sum, 2)
	require.Len(t, v.Recent, 2)
	assert.Equal(t, "a", v.Recent[0].ID)
	assert.Equal(t, "3.00", v.TotalExpenses)
	assert.Empty(t, v.Categories)
}

func TestNewMutationView(t *testing.T) {
	res := services.MutationResult{
		Transaction: core.Transaction{ID: "t1", Amount: core.Cents(-15000)},
		Report: aggregation.Report{
			Updated: 1,
			Failures: []aggregation.CategoryFailure{
				{CategoryID: "c2", Name: "Fun", Err: errors.New("locked")},
			},
		},
		Deliveries: []notify.Delivery{
			{Kind: notify.KindLargeTransaction, TransactionID: "t1", Status: notify.StatusSent,
				Message: notify.Message{Subject: "Large Expense Alert"}},
			{Kind: notify.KindBudgetThreshold, CategoryID: "c1", Threshold: 50,
				Status: notify.StatusFailedTransient, Err: errors.New("timeout")},
		},
	}

	v := newMutationView(res, true, false)
	require.NotNil(t, v.Transaction)
	assert.Nil(t, v.Category)
	require.NotNil(t, v.Aggregation)
	assert.Equal(t, 1, v.Aggregation.Updated)
	require.Len(t, v.Aggregation.Failures, 1)
	assert.Equal(t, "locked", v.Aggregation.Failures[0].Error)
	require.Len(t, v.Notifications, 2)
	assert.Equal(t, "sent", v.Notifications[0].Status)
	assert.Equal(t, "timeout", v.Notifications[1].Error)

	v = newMutationView(services.MutationResult{RecomputeErr: errors.New("read failed")}, false, false)
	assert.Nil(t, v.Aggregation)
	assert.Equal(t, "read failed", v.RecomputeError)
	assert.NotNil(t, v.Notifications, "notifications encode as an empty list")
}
