package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/middleware/ratelimit"
	"budgetbuddy/internal/middleware/security"
	"budgetbuddy/internal/middleware/trace"
	"budgetbuddy/internal/services"
)

// BudgetService is the orchestration surface the handlers call.
type BudgetService interface {
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	CreateCategory(ctx context.Context, owner core.Owner, in core.CategoryInput) (services.MutationResult, error)
	AddPresetCategories(ctx context.Context, owner core.Owner) ([]core.Category, error)
	UpdateCategory(ctx context.Context, owner core.Owner, categoryID string, u core.CategoryUpdate) (services.MutationResult, error)
	DeleteCategory(ctx context.Context, owner core.Owner, categoryID string) (services.MutationResult, error)
	ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, owner core.Owner, in core.TransactionInput) (services.MutationResult, error)
	UpdateTransaction(ctx context.Context, owner core.Owner, transactionID string, u core.TransactionUpdate) (services.MutationResult, error)
	DeleteTransaction(ctx context.Context, owner core.Owner, transactionID string) (services.MutationResult, error)
	Recompute(ctx context.Context, owner core.Owner) (services.MutationResult, error)
	Summary(ctx context.Context, ownerID string, recent int) (core.Summary, error)
	ResetNotifications(ctx context.Context, ownerID string) (int, error)
	Export(ctx context.Context, ownerID string) (string, error)
}

var _ BudgetService = (*services.BudgetService)(nil)

// Options configures the server. Zero values fall back to defaults.
type Options struct {
	Addr    string
	Service BudgetService
	// Ready is pinged by /readyz; nil means always ready.
	Ready  ledger.Pinger
	Logger *log.Logger

	AllowedOrigins      []string
	PostRequestsPerMin  int
	SummaryCacheSize    int
	SummaryCacheTTL     time.Duration
	CacheCleanupEvery   time.Duration
	AdditionalProxyCIDR []string
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8081"
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.SummaryCacheSize <= 0 {
		o.SummaryCacheSize = 500
	}
	if o.SummaryCacheTTL <= 0 {
		o.SummaryCacheTTL = 5 * time.Minute
	}
	if o.CacheCleanupEvery <= 0 {
		o.CacheCleanupEvery = 10 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = log.FromContext(context.Background())
	}
	return o
}

type Server struct {
	http.Server
	svc     BudgetService
	ready   ledger.Pinger
	now     func() time.Time
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	// Summaries are cached per owner with every transaction included and
	// trimmed per request. Any write by the owner drops the entry and bumps
	// the owner's generation, so a summary computed before the write is not
	// stored after it.
	summaryCache *cache.LRUCache[core.Summary]
	cacheJanitor *cache.Janitor
	genMu        sync.Mutex
	summaryGen   map[string]uint64

	shutdownOnce sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
// Background cleanup starts with Start.
func NewServer(opts Options) *Server {
	opts = opts.withDefaults()

	s := &Server{
		svc:          opts.Service,
		ready:        opts.Ready,
		now:          time.Now,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.PostRequestsPerMin}),
		tracer:       trace.NewMiddleware(),
		summaryCache: cache.NewLRUCache[core.Summary](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		summaryGen:   make(map[string]uint64),
	}
	s.cacheJanitor = cache.NewJanitor(s.summaryCache)

	detector := security.NewDetector()
	for _, cidr := range opts.AdditionalProxyCIDR {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring trusted proxy",
				log.FieldComponent, log.ComponentHTTP,
				log.FieldError, err)
		}
	}

	r := gin.New()
	if err := r.SetTrustedProxies(detector.TrustedProxies()); err != nil {
		slog.Warn("Failed to set trusted proxies",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldError, err)
	}
	r.Use(
		gin.Recovery(),
		s.tracer.Handler(),
		log.Middleware(opts.Logger.WithComponent(log.ComponentHTTP)),
		security.Headers(security.DefaultHeadersConfig()),
		detector.Middleware(),
		cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderOwnerID, HeaderOwnerEmail},
			ExposeHeaders: []string{"Content-Length", log.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
		s.limiter.Middleware(http.MethodPost),
	)

	r.GET("/healthz", handleHealth)
	r.GET("/readyz", s.handleReady)

	api := r.Group("/api", requireOwner)
	api.GET("/categories", s.handleListCategories)
	api.POST("/categories", s.handleCreateCategory)
	api.POST("/categories/presets", s.handleAddPresets)
	api.PATCH("/categories/:id", s.handleUpdateCategory)
	api.DELETE("/categories/:id", s.handleDeleteCategory)
	api.GET("/transactions", s.handleListTransactions)
	api.POST("/transactions", s.handleCreateTransaction)
	api.PATCH("/transactions/:id", s.handleUpdateTransaction)
	api.DELETE("/transactions/:id", s.handleDeleteTransaction)
	api.GET("/summary", s.handleSummary)
	api.POST("/recompute", s.handleRecompute)
	api.POST("/notifications/reset", s.handleResetNotifications)
	api.POST("/export", s.handleExport)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.cacheJanitor.Start(opts.CacheCleanupEvery)
	s.limiter.Start()

	return s
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheJanitor.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateSummary(ownerID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.summaryGen[ownerID]++
	s.summaryCache.Delete(ownerID)
}

// summary returns the cached full summary for ownerID, computing it on miss.
// A computed summary is cached only if no write landed while it was built.
func (s *Server) summary(ctx context.Context, ownerID string) (core.Summary, bool, error) {
	if sum, ok := s.summaryCache.Get(ownerID); ok {
		return sum, true, nil
	}

	s.genMu.Lock()
	gen := s.summaryGen[ownerID]
	s.genMu.Unlock()

	sum, err := s.svc.Summary(ctx, ownerID, -1)
	if err != nil {
		return core.Summary{}, false, err
	}

	s.genMu.Lock()
	if s.summaryGen[ownerID] == gen {
		s.summaryCache.Set(ownerID, sum)
	}
	s.genMu.Unlock()
	return sum, false, nil
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed",
				log.FieldComponent, log.ComponentHTTP,
				log.FieldError, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
