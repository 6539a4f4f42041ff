// Package api exposes the venue's ingress over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/joripage/venue-sim/pkg/venue"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	venue  *venue.Venue
	router *mux.Router
	logger *logging.Logger

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

func NewServer(v *venue.Venue, logger *logging.Logger) *Server {
	s := &Server{
		venue:  v,
		router: mux.NewRouter(),
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	api.HandleFunc("/instruments/{instrument}", s.handleGetInstrument).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleGetStats).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Use(s.requestIDMiddleware)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called; it returns nil on a clean shutdown.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info(context.Background(), "http server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(requestIDHeader); id != "" {
			ctx = logging.WithRequestID(ctx, id)
		}
		_, ctx = logging.FromContext(ctx, s.logger)
		w.Header().Set(requestIDHeader, logging.RequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req venue.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	orderID, err := s.venue.AddOrderRequest(r.Context(), req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitOrderResponse{OrderID: orderID})
}

func (s *Server) handleGetInstrument(w http.ResponseWriter, r *http.Request) {
	instrument, err := strconv.Atoi(mux.Vars(r)["instrument"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "instrument must be an integer"})
		return
	}

	top, err := s.venue.TopOfBook(instrument)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTopOfBookResponse(top))
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.venue.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, venue.ErrInvalidArgument) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	logger, ctx := logging.FromContext(ctx, s.logger)
	logger.Error(ctx, "request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
