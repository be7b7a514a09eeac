package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/auth"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/ceiling"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/dashboard"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/observability"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/profiles"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/rbac"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
	"github.com/tmc6backup-cloud/e-kendali-suma/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler      *auth.Handler
	ProfilesHandler  *profiles.Handler
	CeilingHandler   *ceiling.Handler
	RequestHandler   *request.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the control-card API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.RBACMiddleware.WithActor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/profiles", params.ProfilesHandler.MountRoutes)
	r.Route("/ceilings", params.CeilingHandler.MountRoutes)
	r.Route("/requests", params.RequestHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
