package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/text/language"

	"card/internal/fetch"
	"card/internal/log"
	"card/internal/metrics"
	"card/internal/middleware/ratelimit"
	"card/internal/middleware/security"
	"card/internal/middleware/trace"
	"card/internal/ui"
	appweb "card/web"
)

const keepAliveInterval = 25 * time.Second

// Options wires the server to the fetchers it renders.
type Options struct {
	Addr    string
	Loop    *ui.Loop
	Summary *fetch.SummaryFetcher
	List    *fetch.ListFetcher
	Locale  language.Tag
	Logger  *log.Logger
	// Metrics is optional; /metrics is not mounted without it.
	Metrics *metrics.Metrics
	// Feed is optional; it serves the websocket state-change feed.
	Feed               http.Handler
	RateLimitPerMinute int
	// Now defaults to time.Now and decides which month the screens show.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	loop      *ui.Loop
	summary   *fetch.SummaryFetcher
	list      *fetch.ListFetcher
	locale    language.Tag
	logger    *log.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	clientIP  *security.ClientIP
	now       func() time.Time
	keepAlive time.Duration

	// closed on Shutdown so event streams end before the listener drains
	closing      chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		loop:      opts.Loop,
		summary:   opts.Summary,
		list:      opts.List,
		locale:    opts.Locale,
		logger:    logger.WithComponent(log.ComponentHTTP),
		metrics:   opts.Metrics,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		clientIP:  security.NewClientIP(),
		now:       now,
		keepAlive: keepAliveInterval,
		closing:   make(chan struct{}),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limited := s.limiter.Middleware(s.clientIP.Extract, s.handleRateLimited)

	// Screens trigger fetches; partials and events only read state.
	mux.Handle("GET /{$}", limited(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /details", limited(http.HandlerFunc(s.handleDetails)))
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /ui/usages", s.handleUsagesPartial)
	mux.HandleFunc("GET /ui/events", s.handleEvents)
	if opts.Feed != nil {
		mux.Handle("GET /ui/feed", opts.Feed)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var recorder trace.Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, s.clientIP.Extract, recorder)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown ends event streams, stops the rate limiter and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.closing)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r),
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}
