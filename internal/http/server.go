package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"billtracker/internal/backup"
	"billtracker/internal/bills"
	"billtracker/internal/cache"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/middleware/ratelimit"
	"billtracker/internal/middleware/security"
	"billtracker/internal/middleware/trace"
	"billtracker/internal/quickadd"
	appweb "billtracker/web"
)

// Deps are the collaborators of the server. WeekCache, when set, must also
// be registered as a notifier of Store so mutations purge it.
type Deps struct {
	Store     *bills.Store
	WeekCache *cache.WeekCache
	Metrics   *metrics.Metrics
	// Share is the optional platform share target; without it share falls
	// back to a download.
	Share  backup.Target
	Logger *slog.Logger
	Now    func() time.Time
	// RateLimit overrides the mutation rate limit.
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	templates *template.Template
	store     *bills.Store
	adder     *quickadd.Adder
	weekCache *cache.WeekCache
	metrics   *metrics.Metrics
	share     backup.Target
	logger    *slog.Logger
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("http server: store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := applog.WithComponent(deps.Logger, applog.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		store:     deps.Store,
		weekCache: deps.WeekCache,
		metrics:   deps.Metrics,
		share:     deps.Share,
		logger:    logger,
		now:       deps.Now,
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(),
		started:   deps.Now(),
	}
	s.adder = quickadd.NewAdder(deps.Store, deps.Logger).WithToday(s.today)
	if s.weekCache != nil {
		s.metrics.RegisterWeekCache(s.weekCache.Stats)
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/week", s.handleWeekAPI)

	mux.HandleFunc("GET /api/bills", s.handleListBills)
	mux.HandleFunc("POST /bills", s.handleCreateBill)
	mux.HandleFunc("POST /bills/{id}/delete", s.handleDeleteBill)
	mux.HandleFunc("DELETE /bills/{id}/delete", s.handleDeleteBill)
	mux.HandleFunc("POST /quick-add", s.handleQuickAdd)

	mux.HandleFunc("GET /api/bill-types", s.handleListBillTypes)
	mux.HandleFunc("POST /bill-types", s.handleAddBillType)
	mux.HandleFunc("POST /bill-types/delete", s.handleDeleteBillType)

	mux.Handle("GET /export", security.NoStore(http.HandlerFunc(s.handleExport)))
	mux.Handle("POST /share", security.NoStore(http.HandlerFunc(s.handleShare)))
	mux.HandleFunc("POST /import", s.handleImport)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return nil
}

// middleware wraps the mux, outermost first: request id, request logging,
// security headers, probe detection, mutation rate limit, metrics.
func (s *Server) middleware(mux http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutationsOnly, s.onRateLimited)

	h := s.metrics.Middleware(mux)
	h = limit(h)
	h = s.detector.Middleware(s.onSuspicious)(h)
	h = headers.Middleware(h)
	h = applog.RequestMiddleware(s.logger, trace.FromRequest)(h)
	return trace.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	if wantsJSON(r) {
		JSONError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

func (s *Server) onSuspicious(r *http.Request) {
	s.metrics.Suspicious()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldUserAgent, r.UserAgent())
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// week returns the overview for anchor's week, through the cache when one
// is configured.
func (s *Server) week(anchor core.Date) core.WeekOverview {
	if s.weekCache == nil {
		return s.store.Week(anchor)
	}
	return s.weekCache.Overview(anchor, s.store.Week)
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
