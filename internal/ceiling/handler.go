package ceiling

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/platform/httpx"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/rbac"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Handler manages ceiling ledger endpoints.
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

// MountRoutes registers ceiling routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.list)
		r.Get("/utilization", h.utilization)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Put("/", h.upsert)
		r.Delete("/{id}", h.remove)
	})
}

type ceilingPayload struct {
	Department      string  `json:"department" validate:"required"`
	ROCode          string  `json:"ro_code" validate:"required"`
	KomponenCode    string  `json:"komponen_code"`
	SubkomponenCode string  `json:"subkomponen_code"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	Year            int     `json:"year" validate:"gt=0"`
}

type ceilingResponse struct {
	ID              string    `json:"id"`
	Department      string    `json:"department"`
	ROCode          string    `json:"ro_code"`
	KomponenCode    string    `json:"komponen_code"`
	SubkomponenCode string    `json:"subkomponen_code"`
	Amount          float64   `json:"amount"`
	Year            int       `json:"year"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type utilizationResponse struct {
	ceilingResponse
	Spent   float64 `json:"spent"`
	Sisa    float64 `json:"sisa"`
	Percent float64 `json:"percent"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	year := yearParam(r)
	items, err := h.service.ListByYear(r.Context(), year)
	if err != nil {
		h.logger.Error("list ceilings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ceilingResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toCeilingResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) utilization(w http.ResponseWriter, r *http.Request) {
	year := yearParam(r)
	items, err := h.service.UtilizationByYear(r.Context(), year)
	if err != nil {
		h.logger.Error("ceiling utilization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]utilizationResponse, 0, len(items))
	for _, u := range items {
		out = append(out, utilizationResponse{
			ceilingResponse: toCeilingResponse(u.Ceiling),
			Spent:           u.Spent,
			Sisa:            u.Sisa,
			Percent:         u.Percent,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var payload ceilingPayload
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
		Department:      payload.Department,
		ROCode:          payload.ROCode,
		KomponenCode:    payload.KomponenCode,
		SubkomponenCode: payload.SubkomponenCode,
		Amount:          payload.Amount,
		Year:            payload.Year,
	})
	if err != nil {
		h.logger.Error("upsert ceiling", slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCeilingResponse(saved))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete ceiling", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func toCeilingResponse(c BudgetCeiling) ceilingResponse {
	return ceilingResponse{
		ID:              c.ID,
		Department:      c.Department,
		ROCode:          c.ROCode,
		KomponenCode:    c.KomponenCode,
		SubkomponenCode: c.SubkomponenCode,
		Amount:          c.Amount,
		Year:            c.Year,
		UpdatedAt:       c.UpdatedAt,
	}
}

func yearParam(r *http.Request) int {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	if year <= 0 {
		year = time.Now().Year()
	}
	return year
}
