package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"goingviral/pkg/config"
	"goingviral/pkg/errors"
	"goingviral/pkg/identity"
	"goingviral/pkg/logger"
	"goingviral/pkg/mockdata"
	"goingviral/pkg/ratelimit"
	"goingviral/pkg/scraper"
	"goingviral/pkg/storage"
)

// AppName is reported by the health check.
const AppName = "goingviral"

// Fetcher runs a variant's pipeline; *scraper.Scraper satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, variant, username string) (*scraper.Result, error)
	Variants() *scraper.Registry
}

// IdentityProvider sends login links and resolves sessions;
// *identity.Client satisfies it.
type IdentityProvider interface {
	identity.SessionVerifier
	SendMagicLink(ctx context.Context, email, redirectTo string) error
}

var (
	_ Fetcher          = (*scraper.Scraper)(nil)
	_ IdentityProvider = (*identity.Client)(nil)
)

// Server exposes the fetch functions and their supporting routes.
type Server struct {
	cfg       config.ServerConfig
	fetcher   Fetcher
	store     storage.Store
	ident     IdentityProvider
	identCfg  config.IdentityConfig
	linkLimit *ratelimit.KeyedWindow
	demo      *mockdata.Generator
	logger    logger.Logger
	now       func() time.Time
	startedAt time.Time

	mux     *http.ServeMux
	handler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithStore serves snapshot history from store.
func WithStore(store storage.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithIdentity enables the magic-link route and, when the server config
// asks for it, session checks on the function routes.
func WithIdentity(p IdentityProvider, cfg config.IdentityConfig) Option {
	return func(s *Server) {
		s.ident = p
		s.identCfg = cfg
	}
}

// WithDemoData replaces the sample data generator.
func WithDemoData(g *mockdata.Generator) Option {
	return func(s *Server) { s.demo = g }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server and registers its routes.
func New(cfg config.ServerConfig, f Fetcher, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		fetcher: f,
		logger:  logger.NewNopLogger(),
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RequireSession && s.ident == nil {
		return nil, errors.Config("require_session needs an identity provider")
	}
	if s.demo == nil {
		s.demo = mockdata.New(s.now().UnixNano(), s.now)
	}
	if s.identCfg.MagicLinksPerHour > 0 {
		s.linkLimit = ratelimit.NewKeyedWindow(s.identCfg.MagicLinksPerHour, time.Hour)
	}
	s.startedAt = s.now().UTC()

	s.routes()
	s.handler = s.recoverPanics(s.requestID(s.logRequests(s.cors(s.mux))))
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	logger.LogComponentStart(s.logger, "http server", map[string]interface{}{
		"addr":            s.cfg.ListenAddr,
		"variants":        s.fetcher.Variants().Names(),
		"require_session": s.cfg.RequireSession,
		"strict_status":   s.cfg.StrictStatusCodes,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("http server shutdown incomplete")
		}
	}()

	err := httpSrv.ListenAndServe()
	if stderrors.Is(err, http.ErrServerClosed) {
		<-done
		logger.LogComponentStop(s.logger, "http server", "context cancelled")
		return nil
	}
	return err
}
