package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/metrics"
)

// Writer writes metric batches to ClickHouse
type Writer struct {
	conn clickhouse.Conn
}

// NewWriter creates new ClickHouse metrics writer and ensures the
// pipeline_requests table exists
func NewWriter(cfg *config.ClickHouseConfig) (*Writer, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	w := &Writer{conn: conn}
	if err := w.ensureSchema(ctx); err != nil {
		return nil, err
	}

	logger.Info("clickhouse metrics writer initialized",
		zap.String("address", cfg.Addr()),
		zap.String("database", cfg.Database),
	)

	return w, nil
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS pipeline_requests (
			timestamp       DateTime64(3),
			client_hash     String,
			tickers         Int32,
			headlines       Int32,
			scored          Int32,
			llm_latency_ms  Int64,
			total_ms        Int64,
			outcome         String
		) ENGINE = MergeTree()
		ORDER BY timestamp
		TTL toDateTime(timestamp) + INTERVAL 90 DAY
	`

	if err := w.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create pipeline_requests table: %w", err)
	}
	return nil
}

// Write writes a batch of metrics into tableName
func (w *Writer) Write(ctx context.Context, tableName string, ms []metrics.Metric) error {
	if len(ms) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, m := range ms {
		if err := batch.Append(m.Values()...); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	logger.Debug("metrics batch written",
		zap.String("table", tableName),
		zap.Int("rows", len(ms)),
	)

	return nil
}

// Close closes the ClickHouse connection
func (w *Writer) Close() error {
	return w.conn.Close()
}
