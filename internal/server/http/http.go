// Package http exposes event generation and validation over HTTP.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
)

type Server struct {
	public       *http.Server
	publicRouter *chi.Mux

	handler *Handler
	logger  zerolog.Logger
}

func New(handler *Handler, logger zerolog.Logger, mws ...func(http.Handler) http.Handler) *Server {
	s := &Server{
		publicRouter: chi.NewRouter(),

		handler: handler,
		logger:  logger,
	}
	s.registerPublicRoutes(mws...)
	s.public = &http.Server{
		Handler:      s.publicRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	return s.publicRouter
}

// ServePublic blocks until the server fails or is shut down. A shutdown that comes
// first makes it return http.ErrServerClosed immediately.
func (s *Server) ServePublic(addr string) error {
	s.public.Addr = addr
	return s.public.ListenAndServe()
}

func (s *Server) ShutdownPublic(ctx context.Context) error {
	if err := s.public.Shutdown(ctx); err != nil {
		return s.public.Close()
	}
	return nil
}

func (s *Server) registerPublicRoutes(middlewares ...func(http.Handler) http.Handler) {
	s.publicRouter.Use(requestLogger(s.logger))
	s.publicRouter.Use(middlewares...)
	s.publicRouter.Get("/_/ready", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	s.publicRouter.Route("/v1/events", func(r chi.Router) {
		r.Post("/generate", s.handler.Generate)
		r.Post("/validate", s.handler.Validate)
	})
}
