package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cardledger/internal/cache"
	applog "cardledger/internal/log"
	"cardledger/internal/middleware/ratelimit"
	"cardledger/internal/middleware/security"
	"cardledger/internal/middleware/trace"
	"cardledger/internal/services"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Logger        *applog.Logger
	RateLimit     ratelimit.Config
	CacheSize     int
	CacheTTL      time.Duration
	CacheSweep    time.Duration
	MaxRestoreLen int64
	Now           func() time.Time
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = applog.FromContext(context.Background())
	}
	if o.RateLimit.RequestsPerMinute <= 0 {
		o.RateLimit = ratelimit.DefaultConfig()
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	if o.CacheSweep <= 0 {
		o.CacheSweep = 10 * time.Minute
	}
	if o.MaxRestoreLen <= 0 {
		o.MaxRestoreLen = 8 << 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type appMetrics struct {
	started   time.Time
	mutations atomic.Int64
}

// Server is the ledger's JSON API.
type Server struct {
	http.Server
	ledger *services.LedgerService
	logger *applog.Logger
	opts   Options

	statements *cache.StatementCache
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	metrics    appMetrics

	shutdownOnce sync.Once
}

// NewServer wires middleware and routes around svc.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	opts.defaults()
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:     svc,
		logger:     logger,
		opts:       opts,
		statements: cache.NewStatementCache(opts.CacheSize, opts.CacheTTL),
		caches:     cache.NewManager(opts.Logger),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(),
	}
	s.metrics.started = opts.Now()
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)
	s.caches.Register(s.statements)
	s.caches.StartCleanup(opts.CacheSweep)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = s.detector.Middleware(s.onSuspicious)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /statements", s.handleStatement)
	mux.HandleFunc("POST /statements/pay", s.mutation(s.handlePayStatement))
	mux.HandleFunc("POST /statements/export", s.handleExportStatement)
	mux.HandleFunc("GET /debts", s.handleDebts)

	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("POST /cards", s.mutation(s.handleCreateCard))
	mux.HandleFunc("GET /cards/recommend", s.handleRecommend)
	mux.HandleFunc("PUT /cards/{id}", s.mutation(s.handleUpdateCard))
	mux.HandleFunc("GET /cards/{id}/limit", s.handleCardLimit)
	mux.HandleFunc("POST /cards/{id}/status", s.mutation(s.handleToggleCard))
	mux.HandleFunc("POST /cards/{id}/cancel", s.mutation(s.handleCancelCard))
	mux.HandleFunc("POST /cards/{id}/migrate", s.mutation(s.handleMigrateDebt))

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.mutation(s.handleAddExpense))
	mux.HandleFunc("GET /expenses/{id}/end", s.handleProjectedEnd)
	mux.HandleFunc("POST /expenses/{id}/paid", s.mutation(s.handleTogglePaid))
	mux.HandleFunc("POST /expenses/{id}/value", s.mutation(s.handleConfirmValue))
	mux.HandleFunc("POST /expenses/{id}/pause", s.mutation(s.handlePause))
	mux.HandleFunc("POST /expenses/{id}/terminate", s.mutation(s.handleTerminate))
	mux.HandleFunc("POST /import", s.mutation(s.handleImport))

	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /categories/sync", s.mutation(s.handleSyncCategories))

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /backup", s.handleDownloadBackup)
	mux.HandleFunc("POST /backup", s.handleWriteBackup)
	mux.HandleFunc("POST /restore", s.mutation(s.handleRestore))
	mux.HandleFunc("POST /purge", s.mutation(s.handlePurge))
	mux.HandleFunc("POST /rollover/dismiss", s.handleDismissRollover)
}

// mutation counts requests that reached a ledger write.
func (s *Server) mutation(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.mutations.Add(1)
		h(w, r)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded").Write(w)
}

func (s *Server) onSuspicious(r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request rejected",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldUserAgent, r.Header.Get("User-Agent"))
}

// Shutdown stops background sweepers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
