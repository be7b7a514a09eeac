package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// ApprovalModule keys workflow history rows for budget requests.
const ApprovalModule = "BUDGET_REQUEST"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, req Request) (Request, error)
	Get(ctx context.Context, id string) (Request, error)
	List(ctx context.Context, filters ListFilters) ([]Request, error)
	Count(ctx context.Context, filters ListFilters) (int, error)
	Update(ctx context.Context, req Request) error
	UpdateStatus(ctx context.Context, id string, expected, next Status, noteColumn, note string) error
	SetDocuments(ctx context.Context, id, sppdURL, reportURL, spjURL string) error
	SetRealization(ctx context.Context, id string, input RealizationInput) error
	SetAnalysis(ctx context.Context, id, analysis string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	ListCommitted(ctx context.Context) ([]CommittedLine, error)
}

// Analyzer produces the optional AI commentary for a request. A failing
// collaborator must degrade to a fallback string, never block the flow.
type Analyzer interface {
	AnalyzeRequest(ctx context.Context, req Request) string
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops derived dashboard aggregates after a write.
// A nil collaborator disables invalidation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ListFilters narrows request listings.
type ListFilters struct {
	Status      Status
	RequesterID string
	Department  string
	Search      string
	Limit       int
	Offset      int
}

// CommittedLine is one calculation item drawn from a request whose
// status counts as committed spend.
type CommittedLine struct {
	Department      string
	ROCode          string
	KomponenCode    string
	SubkomponenCode string
	Jumlah          float64
}

// Service orchestrates the request lifecycle.
type Service struct {
	repo        RepositoryPort
	analyzer    Analyzer
	approvals   *shared.ApprovalRecorder
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       CacheInvalidator
}

// NewService constructs the request service.
func NewService(repo RepositoryPort, analyzer Analyzer, approvals *shared.ApprovalRecorder, audit AuditPort, idem *shared.IdempotencyStore, cache CacheInvalidator) *Service {
	return &Service{repo: repo, analyzer: analyzer, approvals: approvals, audit: audit, idempotency: idem, cache: cache}
}

// CreateInput describes a new request payload.
type CreateInput struct {
	Title             string
	Category          string
	Location          string
	ExecutionDate     string
	ExecutionEndDate  string
	ExecutionDuration string
	Description       string
	AttachmentURL     string
	Items             []CalculationItem
	Submit            bool
}

// UpdateInput carries editable draft fields.
type UpdateInput struct {
	Title             string
	Category          string
	Location          string
	ExecutionDate     string
	ExecutionEndDate  string
	ExecutionDuration string
	Description       string
	AttachmentURL     string
	Items             []CalculationItem
}

// DocumentsInput carries the accountability bundle URLs. Empty fields
// keep whatever was uploaded before.
type DocumentsInput struct {
	SPPDURL   string
	ReportURL string
	SPJURL    string
}

// RealizationInput records the treasurer's payment figures.
type RealizationInput struct {
	Amount   float64
	Date     time.Time
	Duration string
	Note     string
}

// Create persists a new request. Drafts skip the submission checks;
// submissions from structurally exempt departments enter the chain at
// reviewed_bidang. Derived totals are recomputed server-side.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, input CreateInput) (Request, error) {
	if actor == nil {
		return Request{}, ErrForbidden
	}
	if input.Submit {
		if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
			return Request{}, fmt.Errorf("%w: title and description required on submit", ErrValidation)
		}
	}
	items := normalizeItems(input.Items)
	status := InitialStatus(input.Submit, actor.Department)
	req := Request{
		RequesterID:         actor.ID,
		RequesterName:       actor.Name,
		RequesterDepartment: actor.Department,
		Title:               input.Title,
		Category:            input.Category,
		Location:            input.Location,
		ExecutionDate:       input.ExecutionDate,
		ExecutionEndDate:    input.ExecutionEndDate,
		ExecutionDuration:   input.ExecutionDuration,
		Amount:              TotalAmount(items),
		Description:         input.Description,
		Items:               items,
		Status:              status,
		AttachmentURL:       input.AttachmentURL,
	}
	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return Request{}, err
	}
	if input.Submit {
		s.recordApproval(ctx, actor, created.ID, shared.ApprovalSubmit, string(StatusDraft), "")
	}
	s.recordAudit(ctx, actor, "REQUEST_CREATE", created.ID, map[string]any{"status": string(created.Status), "amount": created.Amount})
	s.bumpCache(ctx)
	return created, nil
}

// Update edits a draft. Only the requester (or admin) may edit, and
// only while the request is still a draft.
func (s *Service) Update(ctx context.Context, actor *shared.Actor, id string, input UpdateInput) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !isOwnerOrAdmin(actor, req) {
		return Request{}, ErrForbidden
	}
	if req.Status != StatusDraft {
		return Request{}, ErrInvalidState
	}
	items := normalizeItems(input.Items)
	req.Title = input.Title
	req.Category = input.Category
	req.Location = input.Location
	req.ExecutionDate = input.ExecutionDate
	req.ExecutionEndDate = input.ExecutionEndDate
	req.ExecutionDuration = input.ExecutionDuration
	req.Description = input.Description
	req.Items = items
	req.Amount = TotalAmount(items)
	if input.AttachmentURL != "" {
		req.AttachmentURL = input.AttachmentURL
	}
	if err := s.repo.Update(ctx, req); err != nil {
		return Request{}, err
	}
	s.recordAudit(ctx, actor, "REQUEST_UPDATE", req.ID, map[string]any{"amount": req.Amount})
	s.bumpCache(ctx)
	return req, nil
}

// Submit moves a draft into the review chain.
func (s *Service) Submit(ctx context.Context, actor *shared.Actor, id string) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !isOwnerOrAdmin(actor, req) {
		return Request{}, ErrForbidden
	}
	if req.Status != StatusDraft {
		return Request{}, ErrInvalidState
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return Request{}, fmt.Errorf("%w: title and description required on submit", ErrValidation)
	}
	next := InitialStatus(true, req.RequesterDepartment)
	if err := s.repo.UpdateStatus(ctx, id, StatusDraft, next, "", ""); err != nil {
		return Request{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalSubmit, string(StatusDraft), "")
	s.recordAudit(ctx, actor, "REQUEST_SUBMIT", id, map[string]any{"status": string(next)})
	s.bumpCache(ctx)
	req.Status = next
	return req, nil
}

// Approve advances the request along the forward edge owned by the
// actor's role. The transition is compare-and-set against the status
// the actor saw, so two validators cannot race past each other.
func (s *Service) Approve(ctx context.Context, actor *shared.Actor, id, note string) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if actor == nil || !CanAct(actor.Role, req.Status) {
		return Request{}, ErrForbidden
	}
	next := NextStatus(req.Status)
	if next == req.Status {
		return Request{}, ErrInvalidState
	}
	column := ""
	note = strings.TrimSpace(note)
	if note != "" {
		column, _ = NoteColumn(req.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, next, column, note); err != nil {
		return Request{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalApprove, string(req.Status), note)
	s.recordAudit(ctx, actor, "REQUEST_APPROVE", id, map[string]any{"from": string(req.Status), "to": string(next)})
	s.bumpCache(ctx)
	req.Status = next
	return req, nil
}

// Reject dead-ends the request. A non-empty reason is required before
// any write happens; the reason lands in the acting stage's note field.
func (s *Service) Reject(ctx context.Context, actor *shared.Actor, id, note string) (Request, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Request{}, ErrNoteRequired
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if actor == nil || !CanAct(actor.Role, req.Status) {
		return Request{}, ErrForbidden
	}
	if req.Status.Terminal() || req.Status == StatusDraft {
		return Request{}, ErrInvalidState
	}
	column, _ := NoteColumn(req.Status)
	if err := s.repo.UpdateStatus(ctx, id, req.Status, StatusRejected, column, note); err != nil {
		return Request{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalReject, string(req.Status), note)
	s.recordAudit(ctx, actor, "REQUEST_REJECT", id, map[string]any{"from": string(req.Status)})
	s.bumpCache(ctx)
	req.Status = StatusRejected
	return req, nil
}

// AttachSPJ stores the accountability document URLs uploaded by the
// requester after approval. The status stays at approved; moving to
// reviewed_pic is the PIC's separate verification decision. SPPD and
// activity report are waived for equipment purchases.
func (s *Service) AttachSPJ(ctx context.Context, actor *shared.Actor, id string, input DocumentsInput) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !isOwnerOrAdmin(actor, req) {
		return Request{}, ErrForbidden
	}
	if req.Status != StatusApproved {
		return Request{}, ErrInvalidState
	}
	sppd := firstNonEmpty(input.SPPDURL, req.SPPDURL)
	report := firstNonEmpty(input.ReportURL, req.ReportURL)
	spj := firstNonEmpty(input.SPJURL, req.SPJURL)
	if spj == "" {
		return Request{}, fmt.Errorf("%w: receipt/SPJ document required", ErrValidation)
	}
	if req.Category != EquipmentCategory {
		if sppd == "" {
			return Request{}, fmt.Errorf("%w: SPPD document required", ErrValidation)
		}
		if report == "" {
			return Request{}, fmt.Errorf("%w: activity report required", ErrValidation)
		}
	}
	if err := s.repo.SetDocuments(ctx, id, sppd, report, spj); err != nil {
		return Request{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalUploadSPJ, string(req.Status), "")
	s.recordAudit(ctx, actor, "REQUEST_SPJ_UPLOAD", id, nil)
	req.SPPDURL, req.ReportURL, req.SPJURL = sppd, report, spj
	return req, nil
}

// RecordRealization stores the treasurer's payment record. Only one
// realization per request is accepted.
func (s *Service) RecordRealization(ctx context.Context, actor *shared.Actor, id string, input RealizationInput) (Request, error) {
	if actor == nil || (actor.Role != shared.RoleBendahara && actor.Role != shared.RoleAdmin) {
		return Request{}, ErrForbidden
	}
	if input.Amount <= 0 || input.Date.IsZero() {
		return Request{}, fmt.Errorf("%w: positive amount and date required", ErrValidation)
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !req.Status.Committed() {
		return Request{}, ErrInvalidState
	}
	key := fmt.Sprintf("REALIZE:%s", id)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "request.realization"); err != nil {
			return Request{}, err
		}
		inserted = true
	}
	if err := s.repo.SetRealization(ctx, id, input); err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Request{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalRealize, string(req.Status), input.Note)
	s.recordAudit(ctx, actor, "REQUEST_REALIZE", id, map[string]any{"amount": input.Amount})
	s.bumpCache(ctx)
	req.RealizationAmount = input.Amount
	date := input.Date
	req.RealizationDate = &date
	req.RealizationDuration = input.Duration
	req.RealizationNote = input.Note
	return req, nil
}

// Analyze runs the text-summarization collaborator over the request and
// stores the commentary. The collaborator degrades to a fallback string
// on failure, so this never blocks the workflow.
func (s *Service) Analyze(ctx context.Context, actor *shared.Actor, id string) (string, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if actor != nil && actor.Role == shared.RolePengaju && actor.ID != req.RequesterID {
		return "", ErrForbidden
	}
	if s.analyzer == nil {
		return req.AIAnalysis, nil
	}
	analysis := s.analyzer.AnalyzeRequest(ctx, req)
	if err := s.repo.SetAnalysis(ctx, id, analysis); err != nil {
		return "", err
	}
	return analysis, nil
}

// Get fetches one request. Staff submitters may only read their own.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, id string) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if actor != nil && actor.Role == shared.RolePengaju && actor.ID != req.RequesterID {
		return Request{}, ErrForbidden
	}
	return req, nil
}

// List returns requests newest first. Staff submitters are scoped to
// their own records; validator roles see everything.
func (s *Service) List(ctx context.Context, actor *shared.Actor, filters ListFilters) ([]Request, error) {
	if actor != nil && actor.Role == shared.RolePengaju {
		filters.RequesterID = actor.ID
	}
	return s.repo.List(ctx, filters)
}

// Page bundles one page of requests with pagination metadata.
type Page struct {
	Data       []Request         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListPage returns one page of requests plus totals, scoped like List.
func (s *Service) ListPage(ctx context.Context, actor *shared.Actor, filters ListFilters, page, perPage int) (Page, error) {
	if actor != nil && actor.Role == shared.RolePengaju {
		filters.RequesterID = actor.ID
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return Page{}, err
	}
	meta := shared.NewPagination(page, perPage, total)
	filters.Limit = meta.PerPage
	filters.Offset = (meta.Page - 1) * meta.PerPage
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Request{}
	}
	return Page{Data: items, Pagination: meta}, nil
}

// Delete removes a single request. Admin may delete anything; the
// requester may only discard an unsubmitted draft.
func (s *Service) Delete(ctx context.Context, actor *shared.Actor, id string) error {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil {
		return ErrForbidden
	}
	if actor.Role != shared.RoleAdmin {
		if actor.ID != req.RequesterID || req.Status != StatusDraft {
			return ErrForbidden
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "REQUEST_DELETE", id, map[string]any{"status": string(req.Status)})
	s.bumpCache(ctx)
	return nil
}

// DeleteAll wipes every request. Admin-only cleanup.
func (s *Service) DeleteAll(ctx context.Context, actor *shared.Actor) error {
	if actor == nil || actor.Role != shared.RoleAdmin {
		return ErrForbidden
	}
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "REQUEST_DELETE_ALL", "*", nil)
	s.bumpCache(ctx)
	return nil
}

// History lists the workflow history recorded for the request.
func (s *Service) History(ctx context.Context, id string) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return nil, nil
	}
	ref, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id", ErrValidation)
	}
	return s.approvals.List(ctx, ApprovalModule, ref)
}

// CommittedLines exposes committed calculation lines for the ceiling
// utilization aggregator.
func (s *Service) CommittedLines(ctx context.Context) ([]CommittedLine, error) {
	return s.repo.ListCommitted(ctx)
}

func (s *Service) recordApproval(ctx context.Context, actor *shared.Actor, id string, action shared.ApprovalAction, stage, note string) {
	if s.approvals == nil || actor == nil {
		return
	}
	ref, err := uuid.Parse(id)
	if err != nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  ApprovalModule,
		RefID:   ref,
		ActorID: actor.ID,
		Action:  action,
		Stage:   stage,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action, entityID string, meta map[string]any) {
	if s.audit == nil || actor == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "budget_request", EntityID: entityID, Meta: meta})
}

// bumpCache invalidates derived aggregates after a successful write.
func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}

func normalizeItems(items []CalculationItem) []CalculationItem {
	out := make([]CalculationItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.Normalize()
		out[i] = item
	}
	return out
}

func isOwnerOrAdmin(actor *shared.Actor, req Request) bool {
	if actor == nil {
		return false
	}
	return actor.Role == shared.RoleAdmin || actor.ID == req.RequesterID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
