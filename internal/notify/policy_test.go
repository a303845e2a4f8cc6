package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/dedup"
	"budgetbuddy/internal/notify"
)

var (
	owner = core.Owner{ID: "u1", Email: "u1@example.com"}
	clock = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Subject
	}
	return out
}

type failingDedup struct {
	notify.DedupStore
	hasErr  error
	markErr error
}

func (f failingDedup) Has(ctx context.Context, key string) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.DedupStore.Has(ctx, key)
}

func (f failingDedup) MarkSent(ctx context.Context, key string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	return f.DedupStore.MarkSent(ctx, key, at)
}

func newPolicy(store notify.DedupStore, transport notify.Transport, cfg notify.Config) *notify.Policy {
	return notify.NewPolicy(store, transport, cfg).WithClock(func() time.Time { return clock })
}

func thresholdsOf(deliveries []notify.Delivery, status notify.DeliveryStatus) []int {
	var out []int
	for _, d := range deliveries {
		if d.Status == status {
			out = append(out, d.Threshold)
		}
	}
	return out
}

func food(spent int64) core.Category {
	return core.Category{ID: "c1", Name: "Food", Budget: core.Cents(50000), Spent: core.Cents(spent)}
}

func TestBudgetThresholdScenario(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewMemory()
	transport := &recordingTransport{}
	policy := newPolicy(store, transport, notify.Config{})

	// 300 of 500 is 60%.
	deliveries := policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	assert.Equal(t, []int{50}, thresholdsOf(deliveries, notify.StatusSent))
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "Budget Alert: Food", transport.sent[0].Subject)
	assert.Equal(t, "Your Food category is at 50% of budget with $300.00 spent of $500.00 budget.", transport.sent[0].Body)
	assert.Equal(t, owner.Email, transport.sent[0].To)

	// Adding 150 brings it to 90%.
	deliveries = policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(45000)})
	assert.Equal(t, []int{75, 90}, thresholdsOf(deliveries, notify.StatusSent))
	assert.Equal(t, []int{50}, thresholdsOf(deliveries, notify.StatusAlreadySent))
	assert.Len(t, transport.sent, 3)
}

func TestBudgetThresholdJumpFiresAllCrossed(t *testing.T) {
	transport := &recordingTransport{}
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{food(60000)})

	assert.Equal(t, []int{50, 75, 90, 100}, thresholdsOf(deliveries, notify.StatusSent))
	last := transport.sent[len(transport.sent)-1]
	assert.Equal(t, "Your Food category is over budget with $600.00 spent of $500.00 budget.", last.Body)
}

func TestBudgetThresholdExactBoundary(t *testing.T) {
	policy := newPolicy(dedup.NewMemory(), &recordingTransport{}, notify.Config{})
	c := core.Category{ID: "c1", Name: "Odd", Budget: core.Cents(333), Spent: core.Cents(249)}

	// 249/333 is 74.77%, just below 75.
	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{c})
	assert.Equal(t, []int{50}, thresholdsOf(deliveries, notify.StatusSent))

	c.Spent = core.Cents(250) // 75.08%
	deliveries = policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{c})
	assert.Equal(t, []int{75}, thresholdsOf(deliveries, notify.StatusSent))
}

func TestBudgetThresholdLargeTotals(t *testing.T) {
	policy := newPolicy(dedup.NewMemory(), &recordingTransport{}, notify.Config{})
	// spent*100 is past the int64 range at both steps.
	c := core.Category{ID: "c1", Name: "Fund", Budget: core.Cents(100_000_000_000_000_000), Spent: core.Cents(93_000_000_000_000_000)}

	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{c})
	assert.Equal(t, []int{50, 75, 90}, thresholdsOf(deliveries, notify.StatusSent))

	c.Spent = c.Budget
	deliveries = policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{c})
	assert.Equal(t, []int{100}, thresholdsOf(deliveries, notify.StatusSent))
}

func TestBudgetThresholdSkipsZeroBudget(t *testing.T) {
	transport := &recordingTransport{}
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

	c := core.Category{ID: "c1", Name: "Misc", Budget: core.Cents(0), Spent: core.Cents(1000)}
	assert.Empty(t, policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{c}))
	assert.Empty(t, transport.sent)
}

func TestBudgetThresholdNoRearm(t *testing.T) {
	ctx := context.Background()
	transport := &recordingTransport{}
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

	policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(10000)})
	deliveries := policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})

	assert.Len(t, transport.sent, 1)
	assert.Equal(t, []int{50}, thresholdsOf(deliveries, notify.StatusAlreadySent))
}

func TestBudgetThresholdMonthlyReset(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewMemory()
	transport := &recordingTransport{}
	now := clock
	policy := notify.NewPolicy(store, transport, notify.Config{ResetPolicy: notify.ResetMonthly}).
		WithClock(func() time.Time { return now })

	policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	assert.Len(t, transport.sent, 1)

	now = now.AddDate(0, 1, 0)
	deliveries := policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	assert.Equal(t, []int{50}, thresholdsOf(deliveries, notify.StatusSent))
	assert.Len(t, transport.sent, 2)
}

func TestLargeTransactionBoundary(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		fires   bool
		subject string
	}{
		{"expense at minimum", -10000, true, "Large Expense Alert"},
		{"income at minimum", 10000, true, "Large Income Alert"},
		{"expense just below", -9999, false, ""},
		{"income just below", 9999, false, ""},
		{"zero", 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{}
			policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

			deliveries := policy.EvaluateLargeTransaction(context.Background(), owner,
				core.Transaction{ID: "t1", Amount: core.Cents(tt.amount)})

			if !tt.fires {
				assert.Empty(t, deliveries)
				assert.Empty(t, transport.sent)
				return
			}
			require.Len(t, deliveries, 1)
			assert.Equal(t, notify.StatusSent, deliveries[0].Status)
			assert.Equal(t, []string{tt.subject}, transport.subjects())
		})
	}
}

func TestLargeUncategorizedExpense(t *testing.T) {
	transport := &recordingTransport{}
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

	tx := core.Transaction{ID: "t9", Name: "Repairs", Amount: core.Cents(-12000)}
	deliveries := policy.EvaluateLargeTransaction(context.Background(), owner, tx)

	require.Len(t, deliveries, 1)
	assert.Equal(t, notify.LargeTransactionKey("u1", "t9"), deliveries[0].Key)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "You have a new expense of $120.00 recorded in your budget.", transport.sent[0].Body)

	again := policy.EvaluateLargeTransaction(context.Background(), owner, tx)
	require.Len(t, again, 1)
	assert.Equal(t, notify.StatusAlreadySent, again[0].Status)
	assert.Len(t, transport.sent, 1)
}

func TestLargeTransactionWithoutIDIsSkipped(t *testing.T) {
	transport := &recordingTransport{}
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{})

	deliveries := policy.EvaluateLargeTransaction(context.Background(), owner, core.Transaction{Amount: core.Cents(-50000)})
	assert.Empty(t, deliveries)
	assert.Empty(t, transport.sent)
}

func TestTransportFailureLeavesKeyUnset(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewMemory()
	transport := &recordingTransport{err: errors.New("connection reset")}
	policy := newPolicy(store, transport, notify.Config{})

	deliveries := policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	require.Len(t, deliveries, 1)
	assert.Equal(t, notify.StatusFailedTransient, deliveries[0].Status)
	assert.Error(t, deliveries[0].Err)
	assert.Zero(t, store.Len())

	transport.err = nil
	deliveries = policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
	assert.Equal(t, notify.StatusSent, deliveries[0].Status, "retried on the next evaluation")
	assert.Equal(t, 1, store.Len())
}

func TestUnconfiguredTransportSkips(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewMemory()

	unconfigured := notify.TransportFunc(func(context.Context, notify.Message) error {
		return notify.ErrTransportUnconfigured
	})
	cases := map[string]*notify.Policy{
		"sentinel error": newPolicy(store, unconfigured, notify.Config{}),
		"nil transport":  newPolicy(store, nil, notify.Config{}),
	}
	for name, policy := range cases {
		t.Run(name, func(t *testing.T) {
			deliveries := policy.EvaluateBudgetThresholds(ctx, owner, []core.Category{food(30000)})
			require.Len(t, deliveries, 1)
			assert.Equal(t, notify.StatusSkippedUnconfigured, deliveries[0].Status)
			assert.NoError(t, deliveries[0].Err)
		})
	}

	t.Run("owner without email", func(t *testing.T) {
		transport := &recordingTransport{}
		policy := newPolicy(store, transport, notify.Config{})
		deliveries := policy.EvaluateBudgetThresholds(ctx, core.Owner{ID: "u1"}, []core.Category{food(30000)})
		require.Len(t, deliveries, 1)
		assert.Equal(t, notify.StatusSkippedUnconfigured, deliveries[0].Status)
		assert.Empty(t, transport.sent)
	})

	assert.Zero(t, store.Len())
}

func TestDedupLookupFailureSkipsSend(t *testing.T) {
	transport := &recordingTransport{}
	store := failingDedup{DedupStore: dedup.NewMemory(), hasErr: errors.New("redis down")}
	policy := newPolicy(store, transport, notify.Config{})

	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{food(30000)})
	require.Len(t, deliveries, 1)
	assert.Equal(t, notify.StatusDedupUnavailable, deliveries[0].Status)
	assert.Empty(t, transport.sent)
}

func TestMarkSentFailureStillReportsSent(t *testing.T) {
	transport := &recordingTransport{}
	store := failingDedup{DedupStore: dedup.NewMemory(), markErr: errors.New("disk full")}
	policy := newPolicy(store, transport, notify.Config{})

	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{food(30000)})
	require.Len(t, deliveries, 1)
	assert.Equal(t, notify.StatusSent, deliveries[0].Status)
	assert.Error(t, deliveries[0].Err)
	assert.Len(t, transport.sent, 1)
}

func TestStalledSendDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	var mu sync.Mutex
	var delivered []string
	transport := notify.TransportFunc(func(ctx context.Context, msg notify.Message) error {
		if msg.Subject == "Budget Alert: Stuck" {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		mu.Lock()
		delivered = append(delivered, msg.Subject)
		mu.Unlock()
		return nil
	})
	policy := newPolicy(dedup.NewMemory(), transport, notify.Config{SendTimeout: 50 * time.Millisecond})

	categories := []core.Category{
		{ID: "a", Name: "Stuck", Budget: core.Cents(100), Spent: core.Cents(60)},
		{ID: "b", Name: "Fine", Budget: core.Cents(100), Spent: core.Cents(60)},
	}
	deliveries := policy.EvaluateBudgetThresholds(context.Background(), owner, categories)

	require.Len(t, deliveries, 2)
	assert.Equal(t, notify.StatusFailedTransient, deliveries[0].Status)
	assert.ErrorIs(t, deliveries[0].Err, context.DeadlineExceeded)
	assert.Equal(t, notify.StatusSent, deliveries[1].Status)
	assert.Equal(t, []string{"Budget Alert: Fine"}, delivered)
	assert.Equal(t, 1, notify.Sent(deliveries))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "notification:u1:budget_threshold:c1:75",
		notify.BudgetThresholdKey("u1", "c1", 75, notify.ResetNever, clock))
	assert.Equal(t, "notification:u1:budget_threshold:c1:75:2026-10",
		notify.BudgetThresholdKey("u1", "c1", 75, notify.ResetMonthly, clock))
	assert.Equal(t, "notification:u1:large_transaction:t1", notify.LargeTransactionKey("u1", "t1"))
	assert.Equal(t, "notification:u1:", notify.OwnerKeyPrefix("u1"))
	assert.Equal(t, "notification:team%3Aalice:large_transaction:t1", notify.LargeTransactionKey("team:alice", "t1"))
}

func TestOwnerKeyPrefixIsOwnerScoped(t *testing.T) {
	owners := []string{"team", "team:alice", "team%3Aalice", "a b", "a+b"}
	for _, owner := range owners {
		prefix := notify.OwnerKeyPrefix(owner)
		for _, other := range owners {
			if other == owner {
				continue
			}
			key := notify.LargeTransactionKey(other, "t1")
			assert.False(t, strings.HasPrefix(key, prefix), "prefix of %q matches key of %q", owner, other)
		}
	}
}

func TestParseResetPolicy(t *testing.T) {
	p, err := notify.ParseResetPolicy("")
	require.NoError(t, err)
	assert.Equal(t, notify.ResetNever, p)

	p, err = notify.ParseResetPolicy("Monthly")
	require.NoError(t, err)
	assert.Equal(t, notify.ResetMonthly, p)

	_, err = notify.ParseResetPolicy("weekly")
	assert.Error(t, err)
}

func TestBudgetThresholdOutcomeLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	policy := newPolicy(dedup.NewMemory(), &recordingTransport{}, notify.Config{})
	policy.EvaluateBudgetThresholds(context.Background(), owner, []core.Category{food(25000)})

	out := buf.String()
	assert.Contains(t, out, `"threshold":50`)
	assert.Contains(t, out, `"spent_cents":25000`)
	assert.Contains(t, out, `"category_id":"c1"`)
}
