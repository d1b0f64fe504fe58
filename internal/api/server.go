// Package api serves classifications over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/recorder"
)

// MaxPortfolioTickers bounds a single portfolio request.
const MaxPortfolioTickers = 50

// Server is the JSON API.
type Server struct {
	router   *mux.Router
	server   *http.Server
	analyzer *analyzer.Analyzer
	recorder recorder.Recorder
	metrics  http.Handler
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewServer wires the routes. rec and metrics may be nil.
func NewServer(addr string, a *analyzer.Analyzer, rec recorder.Recorder, metrics http.Handler, logger zerolog.Logger) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{
		router:   mux.NewRouter(),
		analyzer: a,
		recorder: rec,
		metrics:  metrics,
		timeout:  60 * time.Second,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.timeoutMiddleware)
	v1.HandleFunc("/classify/{ticker}", s.classify).Methods(http.MethodGet)
	v1.HandleFunc("/portfolio", s.portfolio).Methods(http.MethodGet)
	v1.HandleFunc("/history/{ticker}", s.history).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyzer.Classify(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type portfolioItem struct {
	Ticker string                      `json:"ticker"`
	Result *model.ClassificationResult `json:"result,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

type portfolioResponse struct {
	Summary analyzer.Summary `json:"summary"`
	Items   []portfolioItem  `json:"items"`
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	tickers := splitTickers(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers query parameter is required")
		return
	}
	if len(tickers) > MaxPortfolioTickers {
		writeError(w, http.StatusBadRequest, "too many tickers")
		return
	}

	items := s.analyzer.ClassifyBatch(r.Context(), tickers)
	resp := portfolioResponse{Summary: analyzer.Summarize(items), Items: make([]portfolioItem, len(items))}
	for i, it := range items {
		resp.Items[i] = portfolioItem{Ticker: it.Ticker}
		if it.Err != nil {
			resp.Items[i].Error = it.Err.Error()
			continue
		}
		res := it.Result
		resp.Items[i].Result = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
	results, err := s.recorder.History(ticker, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []model.ClassificationResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticker": ticker, "history": results})
}

func splitTickers(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ctxKey struct{}

// RequestID returns the id assigned by the request id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
