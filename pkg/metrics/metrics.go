package metrics

import (
	"context"
	"time"
)

// Metric is a generic interface for any metric record
type Metric interface {
	// TableName returns the sink table name for this metric
	TableName() string
	// Values returns metric values in column order
	Values() []interface{}
}

// Writer writes metric batches to storage
type Writer interface {
	Write(ctx context.Context, tableName string, metrics []Metric) error
	Close() error
}

// Buffer manages batching and auto-flushing of metrics
type Buffer interface {
	Add(metric Metric) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// PipelineRequestMetric records one analysis pipeline run
type PipelineRequestMetric struct {
	Timestamp     time.Time
	ClientHash    string
	Tickers       int
	Headlines     int
	Scored        int
	LLMLatencyMS  int64
	TotalDuration time.Duration
	Outcome       string // ok, rate_limited, llm_failed, invalid
}

func (m *PipelineRequestMetric) TableName() string {
	return "pipeline_requests"
}

func (m *PipelineRequestMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.ClientHash,
		m.Tickers,
		m.Headlines,
		m.Scored,
		m.LLMLatencyMS,
		m.TotalDuration.Milliseconds(),
		m.Outcome,
	}
}
