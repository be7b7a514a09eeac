package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/platform/httpx"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/rbac"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Handler serves the dashboard endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/stats", h.stats)
		r.Get("/insight", h.insight)
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), actor, yearParam(r))
	if err != nil {
		h.logger.Error("dashboard stats", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) insight(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	text, err := h.service.Insight(r.Context(), actor, yearParam(r))
	if err != nil {
		h.logger.Error("dashboard insight", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"insight": text})
}

func yearParam(r *http.Request) int {
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			return year
		}
	}
	return time.Now().Year()
}
