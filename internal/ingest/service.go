package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// FilingSource lists and downloads regulatory filings
type FilingSource interface {
	GetName() string
	ListFilings(ctx context.Context, ticker string, max int) ([]models.Filing, error)
	FetchDocument(ctx context.Context, filing models.Filing) (string, error)
}

// Embedder turns text chunks into embedding vectors
type Embedder interface {
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists embedded document chunks
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []models.DocumentChunk) error
}

// Service ingests company filings: download, strip markup, chunk,
// embed, persist. Each ticker is processed independently so one
// failure never blocks the rest.
type Service struct {
	source     FilingSource
	embedder   Embedder
	store      ChunkStore
	chunker    *Chunker
	maxFilings int
}

// ServiceConfig configures the ingestion service
type ServiceConfig struct {
	Source     FilingSource
	Embedder   Embedder
	Store      ChunkStore
	Chunker    *Chunker
	MaxFilings int
}

// NewService creates a filing ingestion service
func NewService(cfg ServiceConfig) *Service {
	maxFilings := cfg.MaxFilings
	if maxFilings < 1 {
		maxFilings = 2
	}
	chunker := cfg.Chunker
	if chunker == nil {
		chunker = NewChunker(1200, 150)
	}

	return &Service{
		source:     cfg.Source,
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		chunker:    chunker,
		maxFilings: maxFilings,
	}
}

// Run ingests filings for every ticker and reports a per-ticker
// outcome. Errors are captured in the outcome, never returned: the
// caller gets a full report regardless of partial failures.
func (s *Service) Run(ctx context.Context, tickers []string) []models.IngestOutcome {
	outcomes := make([]models.IngestOutcome, 0, len(tickers))

	for _, ticker := range tickers {
		outcome := s.ingestTicker(ctx, models.NormalizeTicker(ticker))
		outcomes = append(outcomes, outcome)

		if outcome.Error != "" {
			logger.Warn("filing ingestion failed",
				zap.String("ticker", outcome.Ticker),
				zap.String("error", outcome.Error),
			)
		} else {
			logger.Info("filings ingested",
				zap.String("ticker", outcome.Ticker),
				zap.Int("filings", outcome.Filings),
				zap.Int("chunks", outcome.Chunks),
			)
		}
	}

	return outcomes
}

func (s *Service) ingestTicker(ctx context.Context, ticker string) models.IngestOutcome {
	outcome := models.IngestOutcome{Ticker: ticker}

	filings, err := s.source.ListFilings(ctx, ticker, s.maxFilings)
	if err != nil {
		outcome.Error = fmt.Sprintf("list filings: %v", err)
		return outcome
	}
	if len(filings) == 0 {
		outcome.Error = "no filings found"
		return outcome
	}

	var chunks []models.DocumentChunk
	for _, filing := range filings {
		doc, err := s.source.FetchDocument(ctx, filing)
		if err != nil {
			outcome.Error = fmt.Sprintf("fetch %s: %v", filing.AccessionNo, err)
			return outcome
		}

		text := stripMarkup(doc)
		for seq, part := range s.chunker.Split(text) {
			chunks = append(chunks, models.DocumentChunk{
				Ticker:      ticker,
				AccessionNo: filing.AccessionNo,
				FormType:    filing.FormType,
				Seq:         seq,
				Text:        part,
			})
		}
		outcome.Filings++
	}

	if len(chunks) == 0 {
		outcome.Error = "filings contained no extractable text"
		return outcome
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.GenerateBatch(ctx, texts)
	if err != nil {
		outcome.Error = fmt.Sprintf("embed chunks: %v", err)
		return outcome
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := s.store.Upsert(ctx, chunks); err != nil {
		outcome.Error = fmt.Sprintf("store chunks: %v", err)
		return outcome
	}

	outcome.Chunks = len(chunks)
	return outcome
}

// stripMarkup extracts the visible text of an HTML document. Falls
// back to the raw input when it does not parse as HTML.
func stripMarkup(doc string) string {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return doc
	}
	parsed.Find("script, style").Remove()
	return parsed.Text()
}
