// Package web runs the HTTP API for identification and attendance.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/store"
	"github.com/jkratochvil/facemark/internal/web/handlers"
)

// Deps collects everything the API serves.
type Deps struct {
	Identifier handlers.FaceIdentifier
	Trainer    handlers.ModelTrainer
	Enroller   handlers.PhotoEnroller
	Resolver   *attendance.Resolver
	Repo       store.Repository
}

// Server represents the web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
}

// NewServer creates a new web server.
func NewServer(host string, port int, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		deps:   deps,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // training and uploads can take a while
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
