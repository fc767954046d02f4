package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the Prometheus scrape endpoint.
type Server struct {
	logger *slog.Logger
	server *http.Server
	mux    *http.ServeMux
	port   int
}

func NewServer(logger *slog.Logger, port int, gatherer prometheus.Gatherer) *Server {
	server := &Server{
		mux:    http.NewServeMux(),
		port:   port,
		logger: logger,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	server.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server.mux.HandleFunc("GET /healthz", server.Healthz)

	return server
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Start blocks serving scrapes until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Metrics server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down metrics server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
