// Package server exposes balance queries, chain and token listings, and
// price lookups over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/metrics"
	"github.com/mrz1836/tally/internal/service/balance"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultRequestTimeout bounds one balance request.
	DefaultRequestTimeout = 55 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Logger receives request and error logs. Satisfied by *config.Logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// PriceSource returns USD quotes by token symbol.
type PriceSource interface {
	USD(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// Config holds the server's dependencies. Zero fields get defaults, except
// Prices: without a price source /api/prices answers 503.
type Config struct {
	Registry       *chain.Registry
	Tokens         *chain.TokenRegistry
	Factory        chain.Factory
	Options        balance.Options
	Policy         balance.Policy
	Limiter        *chain.RateLimiter
	RPCOverrides   map[string]string
	RequestTimeout time.Duration
	Prices         PriceSource
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         Logger
}

// Server is the HTTP front end. Each balance request gets its own
// balance.Service so concurrent requests never share a client pool.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = chain.DefaultRegistry()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = chain.DefaultTokens()
	}
	if cfg.Options == (balance.Options{}) {
		cfg.Options = balance.DefaultHTTPOptions()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	s := &Server{cfg: cfg, engine: gin.New()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.engine.Use(RequestID())
	s.engine.Use(Recovery(s.cfg.Logger))
	s.engine.Use(RequestLogger(s.cfg.Logger))
	s.engine.Use(CORS())
	s.engine.Use(Instrument(s.cfg.Metrics))
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.cfg.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.engine.Group("/api")
	{
		api.POST("/balance", s.handleBalance)
		api.GET("/chains", s.handleChains)
		api.GET("/tokens", s.handleTokens)
		api.POST("/prices", s.handlePrices)
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("[api] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.cfg.Logger.Info("[api] shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
