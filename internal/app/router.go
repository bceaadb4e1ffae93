package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/strata-iam/strata/internal/accounts"
	"github.com/strata-iam/strata/internal/authz"
	"github.com/strata-iam/strata/internal/events"
	"github.com/strata-iam/strata/internal/observability"
	"github.com/strata-iam/strata/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     *accounts.Middleware
	AuthzHandler       *authz.Handler
	EventsHandler      *events.Handler
	CredentialsHandler *accounts.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router. Everything under /v1 requires a
// credential; health and metrics stay open.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if params.AuthMiddleware != nil {
			r.Use(params.AuthMiddleware.Authenticate)
		}
		params.AuthzHandler.MountRoutes(r)
		if params.EventsHandler != nil {
			r.Route("/events", params.EventsHandler.MountRoutes)
		}
		if params.CredentialsHandler != nil {
			r.Route("/credentials", params.CredentialsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
