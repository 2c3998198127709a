package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/internal/chat"
	"github.com/finpulse/finpulse/internal/ratelimit"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// Analyzer runs the sentiment pipeline
type Analyzer interface {
	Analyze(ctx context.Context, tickers []string, rng models.Range, clientHash string) ([]models.TickerSentiment, error)
	Collect(ctx context.Context, tickers []string, rng models.Range) ([]models.TickerSentiment, error)
}

// Chatter answers filing-grounded questions
type Chatter interface {
	Ask(ctx context.Context, ticker string, messages []chat.Message) (*chat.Response, error)
}

// Ingester runs filing ingestion for a set of tickers
type Ingester interface {
	Run(ctx context.Context, tickers []string) []models.IngestOutcome
}

// TickerSettings persists the operator's custom ticker list
type TickerSettings interface {
	SetCustomTickers(tickers []string) error
	CustomTickers() ([]string, error)
}

// Server is the HTTP API server
type Server struct {
	router   chi.Router
	cfg      config.ServerConfig
	limiter  ratelimit.Store
	pipeline Analyzer
	chat     Chatter
	ingester Ingester
	settings TickerSettings
}

// Deps holds the server's collaborators. Chat and Ingester are
// optional: their endpoints answer 503 when absent.
type Deps struct {
	Limiter  ratelimit.Store
	Pipeline Analyzer
	Chat     Chatter
	Ingester Ingester
	Settings TickerSettings
}

// New creates a configured API server with all routes and middleware
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		limiter:  deps.Limiter,
		pipeline: deps.Pipeline,
		chat:     deps.Chat,
		ingester: deps.Ingester,
		settings: deps.Settings,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router, for tests
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stocks", s.handleGetStocks)
	r.Post("/stocks", s.handleCollectStocks)
	r.Post("/chat", s.handleChat)
	r.Post("/sync-tickers", s.handleSyncTickers)
	r.Get("/ingest", s.handleIngest)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", s.cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
