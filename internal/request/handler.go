package request

import (
	"context"
	"errors"
	"io"
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

// Uploader pushes a file to the blob store and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// CardRenderer renders the printable control card as a PDF document.
type CardRenderer interface {
	RenderCard(ctx context.Context, req Request) ([]byte, error)
}

// Handler manages budget-request endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	uploader  Uploader
	cards     CardRenderer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, uploader Uploader, cards CardRenderer) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New(), uploader: uploader, cards: cards}
}

// MountRoutes registers request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/attachments", h.uploadAttachment)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/spj", h.attachSPJ)
		r.Post("/{id}/analyze", h.analyze)
		r.Get("/{id}/history", h.history)
		r.Get("/{id}/card", h.printCard)
		r.Delete("/{id}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireValidator)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleBendahara, shared.RoleAdmin))
		r.Post("/{id}/realization", h.realization)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin))
		r.Delete("/", h.removeAll)
	})
}

type itemPayload struct {
	ID              string  `json:"id"`
	Title           string  `json:"title" validate:"required"`
	DetailBarang    string  `json:"detail_barang"`
	KROCode         string  `json:"kro_code"`
	ROCode          string  `json:"ro_code"`
	KomponenCode    string  `json:"komponen_code"`
	SubkomponenCode string  `json:"subkomponen_code"`
	KodeAkun        string  `json:"kode_akun"`
	F1Val           float64 `json:"f1_val"`
	F1Unit          string  `json:"f1_unit"`
	F2Val           float64 `json:"f2_val"`
	F2Unit          string  `json:"f2_unit"`
	F3Val           float64 `json:"f3_val"`
	F3Unit          string  `json:"f3_unit"`
	F4Val           float64 `json:"f4_val"`
	F4Unit          string  `json:"f4_unit"`
	VolKeg          float64 `json:"volkeg"`
	SatKeg          string  `json:"satkeg"`
	HargaSatuan     float64 `json:"hargaSatuan" validate:"gte=0"`
}

type requestPayload struct {
	Title             string        `json:"title"`
	Category          string        `json:"category"`
	Location          string        `json:"location"`
	ExecutionDate     string        `json:"execution_date"`
	ExecutionEndDate  string        `json:"execution_end_date"`
	ExecutionDuration string        `json:"execution_duration"`
	Description       string        `json:"description"`
	AttachmentURL     string        `json:"attachment_url"`
	Items             []itemPayload `json:"calculation_items" validate:"dive"`
	Submit            bool          `json:"submit"`
}

type notePayload struct {
	Note string `json:"note"`
}

type documentsPayload struct {
	SPPDURL   string `json:"sppd_url"`
	ReportURL string `json:"report_url"`
	SPJURL    string `json:"spj_url"`
}

type realizationPayload struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Date     string  `json:"date" validate:"required"`
	Duration string  `json:"duration"`
	Note     string  `json:"note"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Status:     Status(q.Get("status")),
		Department: q.Get("department"),
		Search:     q.Get("search"),
	}
	if filters.Status != "" && !filters.Status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if q.Get("page") != "" || q.Get("per_page") != "" {
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("per_page"))
		result, err := h.service.ListPage(r.Context(), actor, filters, page, perPage)
		if err != nil {
			h.logger.Error("list requests", slog.Any("error", err))
			respondDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
		return
	}
	items, err := h.service.List(r.Context(), actor, filters)
	if err != nil {
		h.logger.Error("list requests", slog.Any("error", err))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload requestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, CreateInput{
		Title:             payload.Title,
		Category:          payload.Category,
		Location:          payload.Location,
		ExecutionDate:     payload.ExecutionDate,
		ExecutionEndDate:  payload.ExecutionEndDate,
		ExecutionDuration: payload.ExecutionDuration,
		Description:       payload.Description,
		AttachmentURL:     payload.AttachmentURL,
		Items:             toItems(payload.Items),
		Submit:            payload.Submit,
	})
	if err != nil {
		h.logger.Error("create request", slog.Any("error", err))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var payload requestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), UpdateInput{
		Title:             payload.Title,
		Category:          payload.Category,
		Location:          payload.Location,
		ExecutionDate:     payload.ExecutionDate,
		ExecutionEndDate:  payload.ExecutionEndDate,
		ExecutionDuration: payload.ExecutionDuration,
		Description:       payload.Description,
		AttachmentURL:     payload.AttachmentURL,
		Items:             toItems(payload.Items),
	})
	if err != nil {
		h.logger.Error("update request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.Submit(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("submit request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var payload notePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.Approve(r.Context(), actor, chi.URLParam(r, "id"), payload.Note)
	if err != nil {
		h.logger.Error("approve request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var payload notePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.Reject(r.Context(), actor, chi.URLParam(r, "id"), payload.Note)
	if err != nil {
		h.logger.Error("reject request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) attachSPJ(w http.ResponseWriter, r *http.Request) {
	var payload documentsPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.AttachSPJ(r.Context(), actor, chi.URLParam(r, "id"), DocumentsInput{
		SPPDURL:   payload.SPPDURL,
		ReportURL: payload.ReportURL,
		SPJURL:    payload.SPJURL,
	})
	if err != nil {
		h.logger.Error("attach SPJ", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) realization(w http.ResponseWriter, r *http.Request) {
	var payload realizationPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.RecordRealization(r.Context(), actor, chi.URLParam(r, "id"), RealizationInput{
		Amount:   payload.Amount,
		Date:     date,
		Duration: payload.Duration,
		Note:     payload.Note,
	})
	if err != nil {
		h.logger.Error("record realization", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	analysis, err := h.service.Analyze(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("analyze request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"ai_analysis": analysis})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "file storage not configured")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "multipart field 'file' required")
		return
	}
	defer file.Close()
	url, err := h.uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.logger.Error("upload attachment", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upload Failed", "could not store the file")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *Handler) printCard(w http.ResponseWriter, r *http.Request) {
	if h.cards == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "document rendering not configured")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	req, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	pdf, err := h.cards.RenderCard(r.Context(), req)
	if err != nil {
		h.logger.Error("render control card", slog.Any("error", err), slog.String("id", req.ID))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "could not render the control card")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="kartu-kendali-`+req.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete request", slog.Any("error", err), slog.String("id", chi.URLParam(r, "id")))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) removeAll(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteAll(r.Context(), actor); err != nil {
		h.logger.Error("delete all requests", slog.Any("error", err))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func toItems(payloads []itemPayload) []CalculationItem {
	items := make([]CalculationItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, CalculationItem{
			ID:              p.ID,
			Title:           p.Title,
			DetailBarang:    p.DetailBarang,
			KROCode:         p.KROCode,
			ROCode:          p.ROCode,
			KomponenCode:    p.KomponenCode,
			SubkomponenCode: p.SubkomponenCode,
			KodeAkun:        p.KodeAkun,
			F1Val:           p.F1Val,
			F1Unit:          p.F1Unit,
			F2Val:           p.F2Val,
			F2Unit:          p.F2Unit,
			F3Val:           p.F3Val,
			F3Unit:          p.F3Unit,
			F4Val:           p.F4Val,
			F4Unit:          p.F4Unit,
			VolKeg:          p.VolKeg,
			SatKeg:          p.SatKeg,
			HargaSatuan:     p.HargaSatuan,
		})
	}
	return items
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "request not found")
	case errors.Is(err, ErrNoteRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "a rejection reason is required")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "not allowed at this stage")
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", "action not allowed in the current status")
	case errors.Is(err, ErrStaleStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", "the request status changed, reload and retry")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "realization already recorded")
	default:
		httpx.RespondError(w, err)
	}
}
