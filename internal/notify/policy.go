package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
)

// DefaultThresholds are the budget percentages that trigger an alert.
var DefaultThresholds = []int{50, 75, 90, 100}

// Config holds policy tuning. Zero values fall back to the defaults.
type Config struct {
	Thresholds []int
	// LargeTransactionMinimum is the absolute amount from which a single
	// transaction is reported.
	LargeTransactionMinimum core.Money
	ResetPolicy             ResetPolicy
	// SendTimeout bounds each transport call.
	SendTimeout time.Duration
	// MaxConcurrentSends bounds the sends in flight for one evaluation.
	MaxConcurrentSends int
}

func DefaultConfig() Config {
	return Config{
		Thresholds:              DefaultThresholds,
		LargeTransactionMinimum: core.Cents(10000),
		ResetPolicy:             ResetNever,
		SendTimeout:             10 * time.Second,
		MaxConcurrentSends:      4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.Thresholds) == 0 {
		c.Thresholds = d.Thresholds
	}
	if !c.LargeTransactionMinimum.IsPositive() {
		c.LargeTransactionMinimum = d.LargeTransactionMinimum
	}
	if c.ResetPolicy == "" {
		c.ResetPolicy = d.ResetPolicy
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.MaxConcurrentSends <= 0 {
		c.MaxConcurrentSends = d.MaxConcurrentSends
	}
	return c
}

// Policy evaluates the notification rules. Its only side effects are
// transport sends and, for confirmed sends, dedup writes.
type Policy struct {
	dedup     DedupStore
	transport Transport
	cfg       Config
	now       func() time.Time
}

// NewPolicy creates a policy. A nil transport makes every candidate skip as
// unconfigured.
func NewPolicy(dedup DedupStore, transport Transport, cfg Config) *Policy {
	return &Policy{
		dedup:     dedup,
		transport: transport,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for dedup timestamps and periods.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	p.now = now
	return p
}

type candidate struct {
	key           string
	kind          Kind
	categoryID    string
	threshold     int
	spent         core.Money
	transactionID string
	msg           Message
}

// EvaluateBudgetThresholds fires every threshold each category has reached
// that has not been notified yet. Categories without a budget are skipped.
func (p *Policy) EvaluateBudgetThresholds(ctx context.Context, owner core.Owner, categories []core.Category) []Delivery {
	now := p.now()
	var candidates []candidate
	for _, c := range categories {
		if !c.Budget.IsPositive() {
			continue
		}
		for _, t := range p.cfg.Thresholds {
			if !thresholdReached(c.Spent, c.Budget, t) {
				continue
			}
			candidates = append(candidates, candidate{
				key:        BudgetThresholdKey(owner.ID, c.ID, t, p.cfg.ResetPolicy, now),
				kind:       KindBudgetThreshold,
				categoryID: c.ID,
				threshold:  t,
				spent:      c.Spent,
				msg:        budgetThresholdMessage(owner.Email, c, t),
			})
		}
	}
	return p.deliver(ctx, owner, candidates)
}

// EvaluateLargeTransaction reports a transaction whose absolute amount is at
// least the configured minimum.
func (p *Policy) EvaluateLargeTransaction(ctx context.Context, owner core.Owner, t core.Transaction) []Delivery {
	if t.Amount.Abs().Cents < p.cfg.LargeTransactionMinimum.Cents {
		return nil
	}
	if t.ID == "" {
		slog.WarnContext(ctx, "Skipping large transaction alert for transaction without id",
			log.FieldComponent, log.ComponentNotify,
			log.FieldOwnerID, owner.ID,
			log.FieldAmountCents, t.Amount.Cents)
		return nil
	}
	return p.deliver(ctx, owner, []candidate{{
		key:           LargeTransactionKey(owner.ID, t.ID),
		kind:          KindLargeTransaction,
		transactionID: t.ID,
		msg:           largeTransactionMessage(owner.Email, t),
	}})
}

// thresholdReached reports spent/budget >= threshold% in exact decimal math,
// so sums past the int64 range of spent*100 still compare correctly.
func thresholdReached(spent, budget core.Money, threshold int) bool {
	lhs := decimal.NewFromInt(spent.Cents).Mul(decimal.NewFromInt(100))
	rhs := decimal.NewFromInt(int64(threshold)).Mul(decimal.NewFromInt(budget.Cents))
	return lhs.GreaterThanOrEqual(rhs)
}

// deliver sends the candidates concurrently so one stalled send does not
// hold up the others. Results keep the candidate order.
func (p *Policy) deliver(ctx context.Context, owner core.Owner, candidates []candidate) []Delivery {
	if len(candidates) == 0 {
		return nil
	}

	deliveries := make([]Delivery, len(candidates))
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrentSends)
	for i, c := range candidates {
		g.Go(func() error {
			deliveries[i] = p.deliverOne(ctx, owner, c)
			return nil
		})
	}
	_ = g.Wait()

	return deliveries
}

func (p *Policy) deliverOne(ctx context.Context, owner core.Owner, c candidate) Delivery {
	d := Delivery{
		Key:           c.key,
		Kind:          c.kind,
		CategoryID:    c.categoryID,
		Threshold:     c.threshold,
		TransactionID: c.transactionID,
		Message:       c.msg,
	}

	sent, err := p.dedup.Has(ctx, c.key)
	if err != nil {
		slog.WarnContext(ctx, "Dedup lookup failed, skipping notification",
			log.FieldComponent, log.ComponentNotify,
			log.FieldNotification, c.key,
			log.FieldError, err)
		d.Status, d.Err = StatusDedupUnavailable, err
		return d
	}
	if sent {
		d.Status = StatusAlreadySent
		return d
	}

	if p.transport == nil || owner.Email == "" {
		d.Status = StatusSkippedUnconfigured
		p.logOutcome(ctx, c, d)
		return d
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	err = p.transport.Send(sendCtx, c.msg)
	cancel()
	switch {
	case errors.Is(err, ErrTransportUnconfigured):
		d.Status = StatusSkippedUnconfigured
		p.logOutcome(ctx, c, d)
		return d
	case err != nil:
		d.Status, d.Err = StatusFailedTransient, err
		p.logOutcome(ctx, c, d)
		return d
	}

	d.Status = StatusSent
	if err := p.dedup.MarkSent(ctx, c.key, p.now()); err != nil {
		// The message went out; the next evaluation may send it again.
		slog.ErrorContext(ctx, "Failed to record sent notification",
			log.FieldComponent, log.ComponentNotify,
			log.FieldNotification, c.key,
			log.FieldError, err)
		d.Err = err
	}
	p.logOutcome(ctx, c, d)
	return d
}

func (p *Policy) logOutcome(ctx context.Context, c candidate, d Delivery) {
	level := slog.LevelInfo
	switch d.Status {
	case StatusFailedTransient:
		level = slog.LevelWarn
	case StatusSkippedUnconfigured:
		level = slog.LevelDebug
	}
	args := []any{
		log.FieldComponent, log.ComponentNotify,
		log.FieldNotification, d.Key,
		log.FieldStatus, string(d.Status),
	}
	if d.Kind == KindBudgetThreshold {
		args = append(args,
			log.FieldCategoryID, d.CategoryID,
			log.FieldThreshold, d.Threshold,
			log.FieldSpentCents, c.spent.Cents)
	} else {
		args = append(args, log.FieldTransactionID, d.TransactionID)
	}
	if d.Err != nil {
		args = append(args, log.FieldError, d.Err)
	}
	slog.Log(ctx, level, "Notification evaluated", args...)
}
