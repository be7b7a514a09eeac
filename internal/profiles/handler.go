package profiles

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/platform/httpx"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/rbac"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Handler manages profile administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Get("/", h.list)
		r.Put("/", h.upsert)
		r.Delete("/{id}", h.remove)
	})
}

type profilePayload struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name" validate:"required"`
	Role       string `json:"role" validate:"required"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

type profileResponse struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list profiles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]profileResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var payload profilePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	saved, err := h.service.Upsert(r.Context(), actor, UpsertInput{
		ID:         payload.ID,
		FullName:   payload.FullName,
		Role:       shared.Role(payload.Role),
		Department: payload.Department,
		Password:   payload.Password,
	})
	if err != nil {
		h.logger.Error("upsert profile", slog.Any("error", err))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(saved))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete profile", slog.Any("error", err))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func toResponse(p Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		FullName:   p.FullName,
		Role:       string(p.Role),
		Department: p.Department,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
