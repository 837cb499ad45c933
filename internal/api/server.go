// Package api exposes the thin HTTP trigger surface: fetch jobs are kicked
// off by an external scheduler or operator, the core itself owns no wall
// clock.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/fetch"
	"github.com/mkuhn/stockscores/backend/internal/notify"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Server is the HTTP trigger surface
type Server struct {
	orchestrator *fetch.Orchestrator
	store        contracts.Store
	hub          *notify.Hub
	logger       *logger.Logger
	httpServer   *http.Server
}

// NewServer creates the API server
func NewServer(port string, orchestrator *fetch.Orchestrator, store contracts.Store, hub *notify.Hub, log *logger.Logger) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		hub:          hub,
		logger:       log.WithField("module", "api"),
	}

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // fetch jobs run synchronously
	}
	return s
}

// router configures the HTTP routes
func (s *Server) router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/fetch/{provider}", s.handleFetch).Methods("POST")
	api.HandleFunc("/stocks/{ticker}", s.handleGetStock).Methods("GET")

	if s.hub != nil {
		r.HandleFunc("/ws/digests", s.hub.ServeWS)
	}

	r.Use(loggingMiddleware(s.logger))
	r.Use(recoveryMiddleware(s.logger))

	return r
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server started")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "stockscores-api",
	})
}

// fetchRequest mirrors fetch.Options for the HTTP surface
type fetchRequest struct {
	Ticker      string `json:"ticker"`
	NoSkip      bool   `json:"noSkip"`
	Clear       bool   `json:"clear"`
	Concurrency int    `json:"concurrency"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	provider := stock.Provider(mux.Vars(r)["provider"])

	var req fetchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	}

	result, err := s.orchestrator.FetchFromProvider(r.Context(), provider, fetch.Options{
		Ticker:      req.Ticker,
		NoSkip:      req.NoSkip,
		Clear:       req.Clear,
		Concurrency: req.Concurrency,
	})
	if err != nil {
		var aborted *contracts.AbortedError
		switch {
		case errors.As(err, &aborted):
			// Partial result: report it with the abort reason
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":  err.Error(),
				"result": summarize(result),
			})
		case errors.Is(err, contracts.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, summarize(result))
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	st, err := s.store.Get(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":     st.Ticker,
		"name":       st.Name,
		"isin":       st.ISIN,
		"country":    st.Country,
		"attributes": st.Attrs,
	})
}

func summarize(result *fetch.Result) map[string]interface{} {
	if result == nil {
		return nil
	}
	return map[string]interface{}{
		"provider":   result.Provider,
		"successful": tickers(result.Successful),
		"skipped":    tickers(result.Skipped),
		"failed":     tickers(result.Failed),
	}
}

func tickers(stocks []stock.Stock) []string {
	out := make([]string, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, s.Ticker)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
