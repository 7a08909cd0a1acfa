// Package server exposes the analytics queries over HTTP. Routing,
// validation, and throttling live here; all computation is delegated to the
// service layer.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"crypto-recommendations/internal/analytics"
	"crypto-recommendations/internal/config"
	"crypto-recommendations/internal/service"
)

// Server handles the HTTP API.
type Server struct {
	svc    *service.Service
	logger zerolog.Logger
}

// New constructs the HTTP server facade.
func New(svc *service.Service, logger zerolog.Logger) *Server {
	return &Server{
		svc:    svc,
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// Handler builds the route table with logging and rate-limit middleware.
func (s *Server) Handler(rl config.RateLimitConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cryptos/{symbol}/stats", s.handleStatistics)
	mux.HandleFunc("GET /cryptos/sorted-by-range", s.handleRanking)
	mux.HandleFunc("GET /cryptos/highest-range", s.handleHighestRange)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var handler http.Handler = mux
	if rl.Enabled {
		handler = RateLimit(rl, handler)
	}
	return s.logRequests(handler)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	stats, err := s.svc.Statistics(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSymbol) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.svc.Ranking(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleHighestRange(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	winner, err := s.svc.MostVolatile(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidDate):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoData):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, winner)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("request handled")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
