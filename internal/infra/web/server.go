// Package web exposes the job pipeline over HTTP: submission, status,
// listing, cancellation and source-file discovery, behind token auth.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/usecase"
)

type Server struct {
	pipeline *usecase.PipelineUC
	auth     *AuthManager
	log      *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(pipeline *usecase.PipelineUC, auth *AuthManager, port int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "web").Logger()
	s := &Server{pipeline: pipeline, auth: auth, log: &l}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	RegisterRoutes(r, s)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// RegisterRoutes mounts all routes on the router. Split out so tests can
// drive the handlers through httptest without a listening socket.
func RegisterRoutes(r chi.Router, s *Server) {
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/token", s.handleToken)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.authMiddleware)
		api.Post("/jobs", s.handleSubmit)
		api.Get("/jobs", s.handleList)
		api.Get("/jobs/{id}", s.handleStatus)
		api.Delete("/jobs/{id}", s.handleCancel)
		api.Get("/files", s.handleFiles)
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// authMiddleware requires a valid bearer token on every API route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
