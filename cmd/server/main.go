package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/ai"
	"github.com/finpulse/finpulse/internal/adapters/clickhouse"
	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/internal/adapters/database"
	"github.com/finpulse/finpulse/internal/adapters/filings"
	"github.com/finpulse/finpulse/internal/adapters/market"
	"github.com/finpulse/finpulse/internal/adapters/news"
	"github.com/finpulse/finpulse/internal/adapters/vector"
	"github.com/finpulse/finpulse/internal/chat"
	"github.com/finpulse/finpulse/internal/ingest"
	"github.com/finpulse/finpulse/internal/pipeline"
	"github.com/finpulse/finpulse/internal/ratelimit"
	"github.com/finpulse/finpulse/internal/server"
	"github.com/finpulse/finpulse/internal/settings"
	"github.com/finpulse/finpulse/pkg/embeddings"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/metrics"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("finpulse starting",
		zap.Int("port", cfg.Server.Port),
		zap.Int("daily_quota", cfg.RateLimit.DailyQuota),
	)

	llm := ai.NewOpenAIProvider(&cfg.AI)
	limiter := ratelimit.NewMemoryStore(cfg.RateLimit.DailyQuota)
	settingsStore := settings.NewStore(cfg.Server.SettingsFile)

	collector := initNewsSystem(cfg)

	metricsBuf := initMetrics(cfg)
	if metricsBuf != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsBuf.Close(closeCtx); err != nil {
				logger.Warn("failed to close metrics buffer", zap.Error(err))
			}
		}()
	}

	pipe := pipeline.New(pipeline.Config{
		Market:         market.NewYahooProvider(&cfg.MarketData),
		Collector:      collector,
		LLM:            llm,
		MetricsBuffer:  metricsBuf,
		DefaultTickers: news.DefaultTickers(),
	})

	chatSvc, ingestSvc, cleanup, err := initFilingSystem(cfg, llm)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	srv := server.New(cfg.Server, server.Deps{
		Limiter:  limiter,
		Pipeline: pipe,
		Chat:     chatSvc,
		Ingester: ingestSvc,
		Settings: settingsStore,
	})

	return srv.Run(ctx)
}

func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func initNewsSystem(cfg *config.Config) *news.Collector {
	var scraper *news.Scraper
	if cfg.News.ScrapeEnabled {
		scraper = news.NewScraper(&cfg.News)
	}

	var cache *news.Cache
	if cfg.Redis.Enabled {
		c, err := news.NewCache(&cfg.Redis, cfg.News.CacheTTL)
		if err != nil {
			logger.Warn("headline cache unavailable, continuing without it", zap.Error(err))
		} else {
			cache = c
		}
	}

	return news.NewCollector(news.CollectorConfig{
		Primary:      news.NewFeedProvider(&cfg.News),
		Scraper:      scraper,
		Cache:        cache,
		MaxPerTicker: cfg.News.MaxPerTicker,
		MinPerTicker: cfg.News.MinPerTicker,
		Stagger:      cfg.News.DispatchStagger,
	})
}

// initMetrics sets up the ClickHouse metrics sink. Metrics are
// optional: any setup failure just disables them.
func initMetrics(cfg *config.Config) metrics.Buffer {
	if !cfg.ClickHouse.Enabled {
		return nil
	}

	writer, err := clickhouse.NewWriter(&cfg.ClickHouse)
	if err != nil {
		logger.Warn("clickhouse unavailable, metrics disabled", zap.Error(err))
		return nil
	}

	return metrics.NewBufferedMetrics(metrics.BufferConfig{Writer: writer})
}

// initFilingSystem wires the database-backed filing features: chunk
// storage, embedding cache, EDGAR ingestion and grounded chat. Without
// a database those endpoints are simply absent.
func initFilingSystem(cfg *config.Config, llm ai.Provider) (server.Chatter, server.Ingester, func(), error) {
	if !cfg.Database.Enabled {
		logger.Info("database disabled, filing ingestion and chat unavailable")
		return nil, nil, nil, nil
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db.Conn(), cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	embClient := embeddings.NewClient(embeddings.Config{
		OpenAIClient: openai.NewClient(cfg.AI.APIKey),
		Repository:   vector.NewEmbeddingCache(db.DB()),
		Model:        openai.EmbeddingModel(cfg.AI.EmbeddingModel),
	})
	store := vector.NewStore(db.DB())

	edgar := filings.NewEdgarClient(filings.EdgarConfig{
		BaseURL:   cfg.Ingest.EdgarBaseURL,
		DataURL:   cfg.Ingest.EdgarDataURL,
		UserAgent: cfg.Ingest.UserAgent,
		Timeout:   cfg.Ingest.Timeout,
	})

	ingestSvc := ingest.NewService(ingest.ServiceConfig{
		Source:     edgar,
		Embedder:   embClient,
		Store:      store,
		Chunker:    ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		MaxFilings: cfg.Ingest.MaxFilings,
	})
	chatSvc := chat.NewService(embClient, store, llm)

	return chatSvc, ingestSvc, func() { db.Close() }, nil
}
