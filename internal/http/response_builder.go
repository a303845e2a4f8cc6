// Package http exposes the budget engine as a JSON API.
//
// This file builds the JSON views returned to clients and maps domain errors
// to status codes, so every handler answers in the same shape.

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/aggregation"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/services"
)

type (
	categoryView struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Budget       string  `json:"budget"`
		Spent        string  `json:"spent"`
		Remaining    string  `json:"remaining"`
		UsagePercent float64 `json:"usagePercent"`
		OverBudget   bool    `json:"overBudget"`
		Color        string  `json:"color"`
		Icon         string  `json:"icon"`
		CreatedAt    string  `json:"createdAt"`
	}

	transactionView struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Amount     string `json:"amount"`
		Type       string `json:"type"`
		CategoryID string `json:"categoryId"`
		Date       string `json:"date"`
		CreatedAt  string `json:"createdAt"`
	}

	categoryUsageView struct {
		categoryView
		ShareOfExpenses float64 `json:"shareOfExpenses"`
	}

	summaryView struct {
		TotalSpent    string              `json:"totalSpent"`
		TotalBudget   string              `json:"totalBudget"`
		Remaining     string              `json:"remaining"`
		TotalIncome   string              `json:"totalIncome"`
		TotalExpenses string              `json:"totalExpenses"`
		Balance       string              `json:"balance"`
		Categories    []categoryUsageView `json:"categories"`
		Recent        []transactionView   `json:"recentTransactions"`
	}

	failureView struct {
		CategoryID string `json:"categoryId"`
		Name       string `json:"name"`
		Error      string `json:"error"`
	}

	aggregationView struct {
		Updated   int           `json:"updated"`
		Unchanged int           `json:"unchanged"`
		Failures  []failureView `json:"failures,omitempty"`
	}

	deliveryView struct {
		Kind          string `json:"kind"`
		Status        string `json:"status"`
		CategoryID    string `json:"categoryId,omitempty"`
		Threshold     int    `json:"threshold,omitempty"`
		TransactionID string `json:"transactionId,omitempty"`
		Subject       string `json:"subject"`
		Error         string `json:"error,omitempty"`
	}

	// mutationView is the body of every write endpoint. Aggregation is
	// absent when the ledger could not be re-read after the write.
	mutationView struct {
		Transaction    *transactionView `json:"transaction,omitempty"`
		Category       *categoryView    `json:"category,omitempty"`
		Aggregation    *aggregationView `json:"aggregation,omitempty"`
		RecomputeError string           `json:"recomputeError,omitempty"`
		Notifications  []deliveryView   `json:"notifications"`
	}

	errorView struct {
		Error string `json:"error"`
	}
)

func newCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:           c.ID,
		Name:         c.Name,
		Budget:       c.Budget.String(),
		Spent:        c.Spent.String(),
		Remaining:    c.Remaining().String(),
		UsagePercent: c.UsagePercent(),
		OverBudget:   c.OverBudget(),
		Color:        c.Color,
		Icon:         string(c.Icon),
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newCategoryViews(cats []core.Category) []categoryView {
	out := make([]categoryView, len(cats))
	for i, c := range cats {
		out[i] = newCategoryView(c)
	}
	return out
}

func newTransactionView(t core.Transaction) transactionView {
	kind := "expense"
	if !t.Amount.IsNegative() {
		kind = "income"
	}
	return transactionView{
		ID:         t.ID,
		Name:       t.Name,
		Amount:     t.Amount.String(),
		Type:       kind,
		CategoryID: t.CategoryID,
		Date:       t.Date.String(),
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, t := range txs {
		out[i] = newTransactionView(t)
	}
	return out
}

// newSummaryView renders s with at most recent transactions.
func newSummaryView(s core.Summary, recent int) summaryView {
	usage := make([]categoryUsageView, len(s.Categories))
	for i, u := range s.Categories {
		usage[i] = categoryUsageView{
			categoryView:    newCategoryView(u.Category),
			ShareOfExpenses: u.ShareOfExpenses,
		}
	}
	txs := s.Recent
	if recent >= 0 && len(txs) > recent {
		txs = txs[:recent]
	}
	return summaryView{
		TotalSpent:    s.TotalSpent.String(),
		TotalBudget:   s.TotalBudget.String(),
		Remaining:     s.Remaining.String(),
		TotalIncome:   s.TotalIncome.String(),
		TotalExpenses: s.TotalExpenses.String(),
		Balance:       s.Balance.String(),
		Categories:    usage,
		Recent:        newTransactionViews(txs),
	}
}

func newAggregationView(r aggregation.Report) *aggregationView {
	v := &aggregationView{Updated: r.Updated, Unchanged: r.Unchanged}
	for _, f := range r.Failures {
		v.Failures = append(v.Failures, failureView{CategoryID: f.CategoryID, Name: f.Name, Error: f.Err.Error()})
	}
	return v
}

func newDeliveryViews(ds []notify.Delivery) []deliveryView {
	out := make([]deliveryView, len(ds))
	for i, d := range ds {
		out[i] = deliveryView{
			Kind:          string(d.Kind),
			Status:        string(d.Status),
			CategoryID:    d.CategoryID,
			Threshold:     d.Threshold,
			TransactionID: d.TransactionID,
			Subject:       d.Message.Subject,
		}
		if d.Err != nil {
			out[i].Error = d.Err.Error()
		}
	}
	return out
}

// newMutationView renders a write result. Set withTx or withCategory to
// include the affected record.
func newMutationView(res services.MutationResult, withTx, withCategory bool) mutationView {
	v := mutationView{Notifications: newDeliveryViews(res.Deliveries)}
	if withTx {
		tv := newTransactionView(res.Transaction)
		v.Transaction = &tv
	}
	if withCategory {
		cv := newCategoryView(res.Category)
		v.Category = &cv
	}
	if res.RecomputeErr != nil {
		v.RecomputeError = res.RecomputeErr.Error()
	} else {
		v.Aggregation = newAggregationView(res.Report)
	}
	return v
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrAmountTooLarge,
	core.ErrNegativeBudget,
	core.ErrNegativeSpent,
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidColor,
	core.ErrInvalidIcon,
	core.ErrEmptyUpdate,
	ErrInvalidLimit,
}

// statusFor maps an error to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingOwner), errors.Is(err, core.ErrEmptyOwner):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrExportUnconfigured):
		return http.StatusServiceUnavailable
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with the mapped status. Server errors are logged
// and their detail is not sent to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		slog.ErrorContext(c.Request.Context(), "Request failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldPath, c.FullPath(),
			log.FieldError, err)
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorView{Error: msg})
}

// respondBadRequest is for bodies that are not valid JSON at all.
func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorView{Error: "invalid request body: " + err.Error()})
}
