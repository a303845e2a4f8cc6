package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/dedup"
	"budgetbuddy/internal/ledger/memory"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/services"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingTransport) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type testServer struct {
	srv       *Server
	store     *memory.Store
	transport *recordingTransport
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	dd := dedup.NewMemory()
	tr := &recordingTransport{}
	svc := services.NewBudgetService(store, notify.NewPolicy(dd, tr, notify.DefaultConfig()), dd)

	srv := NewServer(Options{Addr: ":0", Service: svc, Ready: store})
	srv.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testServer{srv: srv, store: store, transport: tr}
}

func (ts testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderOwnerID, "u1")
	req.Header.Set(HeaderOwnerEmail, "u1@example.com")
	w := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	ts.srv.ready = failingPinger{}
	w = httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_RequiresOwner(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_CategoryAndTransactionFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/categories", `{"name":"Food","budget":"500.00"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[mutationView](t, w)
	require.NotNil(t, created.Category)
	foodID := created.Category.ID
	assert.Equal(t, "#3b82f6", created.Category.Color)
	assert.Equal(t, "Coffee", created.Category.Icon)

	w = ts.do(t, http.MethodPost, "/api/transactions",
		`{"name":"Groceries","amount":"-375.00","categoryId":"`+foodID+`","date":"2026-10-05"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[mutationView](t, w)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, "-375.00", res.Transaction.Amount)
	require.NotNil(t, res.Aggregation)
	assert.Equal(t, 1, res.Aggregation.Updated)

	statuses := map[string]int{}
	for _, n := range res.Notifications {
		statuses[n.Kind+"/"+n.Status]++
	}
	assert.Equal(t, map[string]int{"budget_threshold/sent": 2, "large_transaction/sent": 1}, statuses)

	w = ts.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[[]categoryView](t, w)
	require.Len(t, cats, 1)
	assert.Equal(t, "375.00", cats[0].Spent)
	assert.Equal(t, 75.0, cats[0].UsagePercent)

	w = ts.do(t, http.MethodPatch, "/api/transactions/"+res.Transaction.ID, `{"categoryId":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[mutationView](t, w)
	assert.Equal(t, "", patched.Transaction.CategoryID)
	for _, n := range patched.Notifications {
		assert.Equal(t, "already_sent", n.Status)
	}

	w = ts.do(t, http.MethodGet, "/api/categories", "")
	cats = decode[[]categoryView](t, w)
	assert.Equal(t, "0.00", cats[0].Spent)

	w = ts.do(t, http.MethodDelete, "/api/transactions/"+res.Transaction.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/transactions/"+res.Transaction.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/categories/"+foodID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/transactions", `{"name":"","amount":"-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPost, "/api/transactions", `{"name":"Lunch","amount":"lots"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"name":"Food","color":"blue"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/categories/missing", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "empty update")

	w = ts.do(t, http.MethodPatch, "/api/categories/missing", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/transactions?limit=-2", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Empty(t, ts.transport.sent)
}

// interleavedStore runs onList while a summary read is in flight, standing
// in for a write that lands between the read and the cache fill.
type interleavedStore struct {
	*memory.Store
	onList func()
}

func (s *interleavedStore) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	txs, err := s.Store.ListTransactions(ctx, ownerID)
	if s.onList != nil {
		s.onList()
		s.onList = nil
	}
	return txs, err
}

func TestAPI_SummaryNotCachedAcrossConcurrentWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &interleavedStore{Store: memory.New()}
	dd := dedup.NewMemory()
	svc := services.NewBudgetService(store, notify.NewPolicy(dd, nil, notify.DefaultConfig()), dd)
	srv := NewServer(Options{Addr: ":0", Service: svc})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	ts := testServer{srv: srv, store: store.Store}

	store.onList = func() { srv.invalidateSummary("u1") }

	w := ts.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = ts.do(t, http.MethodGet, "/api/summary", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = ts.do(t, http.MethodGet, "/api/summary", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestAPI_SummaryCacheInvalidatedOnWrite(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/categories/presets", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode[[]categoryView](t, w), 6)

	w = ts.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "2500.00", decode[summaryView](t, w).TotalBudget)

	w = ts.do(t, http.MethodGet, "/api/summary", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	for _, day := range []string{"01", "02", "03"} {
		w = ts.do(t, http.MethodPost, "/api/transactions", `{"name":"Salary","amount":1000,"date":"2026-10-`+day+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/summary?recent=2", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	sum := decode[summaryView](t, w)
	assert.Equal(t, "3000.00", sum.TotalIncome)
	assert.Equal(t, "3000.00", sum.Balance)
	require.Len(t, sum.Recent, 2)
	assert.Equal(t, "2026-10-03", sum.Recent[0].Date)

	w = ts.do(t, http.MethodGet, "/api/transactions?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]transactionView](t, w), 1)
}

func TestAPI_RecomputeResetExport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/transactions", `{"name":"TV","amount":"-800","date":"2026-10-01"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, ts.transport.sent, 1)

	w = ts.do(t, http.MethodPost, "/api/recompute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[mutationView](t, w).Aggregation)

	w = ts.do(t, http.MethodPost, "/api/notifications/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{"removed": 1}, decode[map[string]int](t, w))

	w = ts.do(t, http.MethodPost, "/api/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_PostRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.New()
	dd := dedup.NewMemory()
	svc := services.NewBudgetService(store, notify.NewPolicy(dd, nil, notify.DefaultConfig()), dd)
	srv := NewServer(Options{Service: svc, PostRequestsPerMin: 1})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/recompute", nil)
		req.Header.Set(HeaderOwnerID, "u1")
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
