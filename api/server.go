package api

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"rain-checker/collector"
	"rain-checker/models"
)

// RainChecker produces a rain report for one form submission
type RainChecker interface {
	Check(ctx context.Context, req collector.Request) (models.RainReport, error)
}

// Options configures the web server
type Options struct {
	Port        int
	Development bool
	TrustProxy  bool

	// RateLimitMax requests per RateLimitWindow are allowed per client IP
	// on the check endpoint
	RateLimitMax    int
	RateLimitWindow time.Duration

	Logger *zap.Logger
}

// Server represents the web front end
type Server struct {
	checker     RainChecker
	logger      *zap.Logger
	router      *mux.Router
	server      *http.Server
	templates   *template.Template
	limiter     *ipLimiter
	development bool
	trustProxy  bool
}

// NewServer creates a new web server backed by checker
func NewServer(checker RainChecker, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RateLimitMax <= 0 {
		opts.RateLimitMax = 100
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 15 * time.Minute
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		checker:     checker,
		logger:      opts.Logger,
		router:      mux.NewRouter(),
		templates:   tmpl,
		limiter:     newIPLimiter(opts.RateLimitMax, opts.RateLimitWindow),
		development: opts.Development,
		trustProxy:  opts.TrustProxy,
	}
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) registerRoutes() error {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return fmt.Errorf("failed to open static assets: %w", err)
	}

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	s.router.Handle("/check-weather", s.rateLimit(http.HandlerFunc(s.handleCheckWeather))).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealthCheck).Methods(http.MethodGet)
	s.router.PathPrefix("/static/").
		Handler(cacheStatic(http.StripPrefix("/static/", http.FileServer(http.FS(static))))).
		Methods(http.MethodGet, http.MethodHead)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	return nil
}

// Handler returns the router wrapped in the middleware chain. Panics are
// recovered inside the compressor and the access log so a 500 is still
// gzipped and logged.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.recoverer(h)
	h = securityHeaders(h)
	h = handlers.CompressHandler(h)
	h = s.accessLog(h)
	h = requestID(h)
	if s.trustProxy {
		h = handlers.ProxyHeaders(h)
	}
	return h
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start begins serving and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
