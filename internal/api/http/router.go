// Package http exposes the URL-shortening service over a chi router. The
// handlers are thin: all validation and business rules live in the service.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mbocharov/shortlink/internal/models"
	"github.com/mbocharov/shortlink/internal/service"
	"github.com/mbocharov/shortlink/internal/storage"
	"github.com/mbocharov/shortlink/pkg/response"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// CreateShortURL shortens the original URL, optionally with a custom
	// short code and validity window in minutes.
	CreateShortURL(ctx context.Context, originalURL string, validityMinutes *int, customCode string) (*service.ShortURL, error)

	// GetStatistics returns the full statistics view for a short code.
	GetStatistics(ctx context.Context, code string) (*models.StatsView, error)

	// HandleRedirect resolves a short code and records the click.
	HandleRedirect(ctx context.Context, code string, click models.Click) (*service.Redirect, error)

	// ListAll returns statistics views for every stored record.
	ListAll(ctx context.Context) ([]models.StatsView, error)

	// DeactivateURL soft-deactivates the URL behind a short code.
	DeactivateURL(ctx context.Context, code string) error

	// Summary returns aggregate store counts.
	Summary(ctx context.Context) storage.Summary
}

// getValidate initializes a validator for incoming request payloads,
// reporting field names by their JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes a router with all routes and middleware configured.
// The bare "/{shortCode}" redirect route is registered last; chi gives the
// static /health, /shorturls and /api prefixes priority over it.
func NewRouter(logger *httplog.Logger, urlSvc URLService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	})

	r.Get("/health", handleHealth(urlSvc))

	r.Route("/shorturls", func(r chi.Router) {
		r.Post("/", handleCreateShortURL(urlSvc, validate))

		r.Route("/{shortCode}", func(r chi.Router) {
			r.Get("/", handleGetURLStats(urlSvc))
			r.Delete("/", handleDeactivateURL(urlSvc))
		})
	})

	r.Get("/api/all", handleListAll(urlSvc))

	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
