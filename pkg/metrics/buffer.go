package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
)

// BufferedMetrics accumulates metrics in memory and writes them out in
// batches, either when the pending count reaches BatchSize or on a
// periodic timer. Grouping by sink table happens at flush time.
type BufferedMetrics struct {
	writer    Writer
	batchSize int

	mu      sync.Mutex
	pending []Metric

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// BufferConfig configures the metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int
	FlushInterval time.Duration
}

// NewBufferedMetrics creates new buffered metrics manager
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:    cfg.Writer,
		batchSize: cfg.BatchSize,
		pending:   make([]Metric, 0, cfg.BatchSize),
		ticker:    time.NewTicker(cfg.FlushInterval),
		done:      make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.flushLoop()

	logger.Info("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add queues one metric. Reaching the batch size triggers a flush on
// the caller's goroutine; callers record metrics after responding, so
// the occasional write is acceptable there.
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}
	if metric.TableName() == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.mu.Lock()
	bm.pending = append(bm.pending, metric)
	full := len(bm.pending) >= bm.batchSize
	bm.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bm.Flush(ctx)
	}
	return nil
}

// Flush drains the pending metrics and writes one batch per table
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.mu.Lock()
	drained := bm.pending
	bm.pending = make([]Metric, 0, bm.batchSize)
	bm.mu.Unlock()

	if len(drained) == 0 {
		return nil
	}

	byTable := make(map[string][]Metric)
	for _, m := range drained {
		byTable[m.TableName()] = append(byTable[m.TableName()], m)
	}

	failed := 0
	for table, batch := range byTable {
		if err := bm.writer.Write(ctx, table, batch); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("table", table),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("flush failed for %d tables", failed)
	}
	return nil
}

// Close stops the flush loop, writes out whatever is still pending and
// closes the underlying writer
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	close(bm.done)
	bm.ticker.Stop()
	bm.wg.Wait()

	if err := bm.Flush(ctx); err != nil {
		return err
	}
	return bm.writer.Close()
}

func (bm *BufferedMetrics) flushLoop() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := bm.Flush(ctx); err != nil {
				logger.Warn("periodic flush failed", zap.Error(err))
			}
			cancel()

		case <-bm.done:
			return
		}
	}
}
