package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
)

// Store keeps the ledger in process memory. It is safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	categories   map[string]core.Category
	transactions map[string]core.Transaction
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:          time.Now,
		categories:   make(map[string]core.Category),
		transactions: make(map[string]core.Transaction),
	}
}

// WithClock replaces the clock used for CreatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateCategory(_ context.Context, ownerID string, in core.CategoryInput) (core.Category, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := core.Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Budget:    in.Budget,
		Color:     in.Color,
		Icon:      in.Icon,
		CreatedAt: s.now().UTC(),
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Category, 0)
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, ownerID, categoryID string, u core.CategoryUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	u.Apply(&c)
	s.categories[categoryID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := core.Transaction{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(in.Name),
		Amount:     in.Amount,
		CategoryID: in.CategoryID,
		Date:       in.Date,
		CreatedAt:  s.now().UTC(),
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, ownerID, transactionID string, u core.TransactionUpdate) (core.Transaction, error) {
	if err := u.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[transactionID]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, ledger.ErrNotFound
	}
	u.Apply(&t)
	s.transactions[transactionID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[transactionID]
	if !ok || t.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	delete(s.transactions, transactionID)
	return nil
}
