package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/ai"
	"github.com/finpulse/finpulse/internal/chat"
	"github.com/finpulse/finpulse/internal/pipeline"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

type stocksResponse struct {
	Data      []models.TickerSentiment `json:"data"`
	Remaining int                      `json:"remaining"`
}

type collectResponse struct {
	Data []models.TickerSentiment `json:"data"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeQuotaError is writeError for paths where the remaining quota is
// known; the client keeps its quota display consistent on failures
func writeQuotaError(w http.ResponseWriter, status int, msg string, remaining int) {
	writeJSON(w, status, errorResponse{Error: msg, Remaining: &remaining})
}

// clientKey identifies the caller by IP. The RealIP middleware already
// resolved X-Forwarded-For into RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientHash is the anonymized client identifier recorded in metrics
func clientHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// parseTickers splits a comma-separated ticker list, dropping empties
func parseTickers(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if norm := models.NormalizeTicker(t); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

// requestTickers merges the request's tickers with the operator's
// persisted custom list
func (s *Server) requestTickers(raw string) []string {
	tickers := parseTickers(raw)
	if s.settings == nil {
		return tickers
	}

	custom, err := s.settings.CustomTickers()
	if err != nil {
		logger.Warn("failed to load custom tickers", zap.Error(err))
		return tickers
	}
	return append(tickers, custom...)
}

func rangeOrDefault(raw string) (models.Range, error) {
	if raw == "" {
		return models.RangeOneDay, nil
	}
	return pipeline.ValidateRange(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetStocks runs the full sentiment pipeline. Quota is consumed
// once the request is admitted and valid, so a later LLM failure still
// counts against the day's allowance.
func (s *Server) handleGetStocks(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)

	decision := s.limiter.Admit(key)
	if !decision.Allowed {
		writeQuotaError(w, http.StatusTooManyRequests, "daily request limit reached", decision.Remaining)
		return
	}

	rng, err := rangeOrDefault(r.URL.Query().Get("range"))
	if err != nil {
		writeQuotaError(w, http.StatusBadRequest, err.Error(), decision.Remaining)
		return
	}

	s.limiter.Increment(key)
	remaining := s.limiter.Remaining(key)

	tickers := s.requestTickers(r.URL.Query().Get("tickers"))

	data, err := s.pipeline.Analyze(r.Context(), tickers, rng, clientHash(key))
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		status := http.StatusInternalServerError
		msg := "analysis failed"
		if errors.Is(err, ai.ErrMalformed) {
			msg = "sentiment response could not be parsed"
		}
		writeQuotaError(w, status, msg, remaining)
		return
	}

	writeJSON(w, http.StatusOK, stocksResponse{Data: data, Remaining: remaining})
}

type collectRequest struct {
	Tickers []string `json:"tickers"`
	Range   string   `json:"range"`
}

// handleCollectStocks returns market data and raw headlines without
// sentiment scoring. It consumes no quota: chart refreshes must not
// spend the day's analysis allowance.
func (s *Server) handleCollectStocks(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rng, err := rangeOrDefault(req.Range)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.pipeline.Collect(r.Context(), req.Tickers, rng)
	if err != nil {
		logger.Error("collection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collection failed")
		return
	}

	writeJSON(w, http.StatusOK, collectResponse{Data: data})
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
	Ticker   string         `json:"ticker"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if models.NormalizeTicker(req.Ticker) == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	resp, err := s.chat.Ask(r.Context(), req.Ticker, req.Messages)
	if err != nil {
		logger.Error("chat failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type syncTickersRequest struct {
	CustomTickers json.RawMessage `json:"customTickers"`
}

// handleSyncTickers persists the operator's custom ticker list. The
// body must be exactly {"customTickers": [...strings]}.
func (s *Server) handleSyncTickers(w http.ResponseWriter, r *http.Request) {
	var req syncTickersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.CustomTickers) == 0 {
		writeError(w, http.StatusBadRequest, "customTickers is required")
		return
	}

	// Unmarshal alone is too lenient here: null decodes into a nil
	// slice, which would silently wipe the persisted list
	var tickers []string
	if err := json.Unmarshal(req.CustomTickers, &tickers); err != nil || tickers == nil {
		writeError(w, http.StatusBadRequest, "customTickers must be an array of strings")
		return
	}

	if err := s.settings.SetCustomTickers(tickers); err != nil {
		logger.Error("failed to persist custom tickers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist tickers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestResponse struct {
	Data []models.IngestOutcome `json:"data"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}

	tickers := parseTickers(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers parameter is required")
		return
	}

	outcomes := s.ingester.Run(r.Context(), tickers)
	writeJSON(w, http.StatusOK, ingestResponse{Data: outcomes})
}
