// Package api provides the HTTP surface over the book-store service.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/download"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/validation"
)

// Bookstore is the service surface the handlers need.
type Bookstore interface {
	Search(ctx context.Context, query string, formats []string, page int, toggles domain.SourceToggles, timeout time.Duration) []domain.BookRecord
	ResolveDownloadLinks(ctx context.Context, record domain.BookRecord) ([]string, error)
	Download(ctx context.Context, url, fileName string, record domain.BookRecord, onProgress download.ProgressFunc) (string, error)
	MirrorHealthSnapshot() map[string]mirror.Status
	ResetMirrorHealth()
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Bookstore
	router   *chi.Mux
	api      huma.API
	validate *validation.Validator
	logger   *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(store Bookstore, logger *slog.Logger) *Server {
	s := &Server{
		store:    store,
		router:   chi.NewRouter(),
		validate: validation.New(),
		logger:   logger,
	}

	s.setupMiddleware()

	RegisterErrorHandler()
	s.api = humachi.New(s.router, huma.DefaultConfig("Inkleaf Store API", "1.0.0"))

	s.registerHealthRoutes()
	s.registerStoreRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}
