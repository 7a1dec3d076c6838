package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"imagestudio/internal/http/handlers"
	"imagestudio/internal/infra"
	"imagestudio/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	Logger         infra.Logger
	CORSOrigins    []string
	CountryLookup  middleware.CountryLookup
	GenerateLimit  int
	GenerateWindow time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Country(opts.CountryLookup),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)

		r.With(middleware.RateLimit(opts.GenerateLimit, opts.GenerateWindow)).Post("/generate", app.Generate)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", app.ListJobs)
			r.Get("/{id}", app.GetJob)
			r.Delete("/{id}", app.DeleteJob)
			r.Get("/{id}/archive", app.JobArchive)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", app.ListAssets)
			r.Delete("/{id}", app.DeleteAsset)
		})
	})

	r.Get("/files/*", app.ServeFile)

	return r
}
