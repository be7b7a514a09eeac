package ceiling

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Upsert(ctx context.Context, input UpsertInput) (BudgetCeiling, error)
	ListByYear(ctx context.Context, year int) ([]BudgetCeiling, error)
	Get(ctx context.Context, id string) (BudgetCeiling, error)
	Delete(ctx context.Context, id string) error
}

// CommittedItemsSource exposes calculation lines from committed requests.
type CommittedItemsSource interface {
	ListCommittedItems(ctx context.Context) ([]CommittedItem, error)
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

// Service orchestrates the ceiling ledger.
type Service struct {
	repo      RepositoryPort
	committed CommittedItemsSource
	audit     AuditPort
	cache     CacheInvalidator
}

// NewService constructs ceiling service.
func NewService(repo RepositoryPort, committed CommittedItemsSource, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, committed: committed, audit: audit, cache: cache}
}

// Upsert creates or replaces the ceiling for the composite key. Validation
// happens before any write.
func (s *Service) Upsert(ctx context.Context, actor *shared.Actor, input UpsertInput) (BudgetCeiling, error) {
	if err := input.validate(); err != nil {
		return BudgetCeiling{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	input.Department = strings.TrimSpace(input.Department)
	input.ROCode = strings.TrimSpace(input.ROCode)
	input.KomponenCode = strings.TrimSpace(input.KomponenCode)
	input.SubkomponenCode = strings.TrimSpace(input.SubkomponenCode)
	saved, err := s.repo.Upsert(ctx, input)
	if err != nil {
		return BudgetCeiling{}, err
	}
	s.recordAudit(ctx, actor, "CEILING_UPSERT", saved.ID, map[string]any{
		"department": saved.Department,
		"ro_code":    saved.ROCode,
		"amount":     saved.Amount,
		"year":       saved.Year,
	})
	s.bumpCache(ctx)
	return saved, nil
}

// ListByYear returns ceilings for a fiscal year.
func (s *Service) ListByYear(ctx context.Context, year int) ([]BudgetCeiling, error) {
	return s.repo.ListByYear(ctx, year)
}

// Delete removes a ceiling row.
func (s *Service) Delete(ctx context.Context, actor *shared.Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "CEILING_DELETE", id, nil)
	s.bumpCache(ctx)
	return nil
}

// UtilizationByYear computes per-tuple spent/sisa for every ceiling of the
// year. Spent counts only items whose codes match the tuple exactly, drawn
// from committed requests of the same department.
func (s *Service) UtilizationByYear(ctx context.Context, year int) ([]Utilization, error) {
	ceilings, err := s.repo.ListByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	items, err := s.committed.ListCommittedItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Utilization, 0, len(ceilings))
	for _, c := range ceilings {
		spent := spentFor(c, items)
		u := Utilization{Ceiling: c, Spent: spent, Sisa: c.Amount - spent}
		if c.Amount > 0 {
			u.Percent = spent / c.Amount * 100
		}
		out = append(out, u)
	}
	return out, nil
}

func spentFor(c BudgetCeiling, items []CommittedItem) float64 {
	var spent float64
	for _, item := range items {
		if item.Department != c.Department {
			continue
		}
		if item.ROCode != c.ROCode || item.KomponenCode != c.KomponenCode || item.SubkomponenCode != c.SubkomponenCode {
			continue
		}
		spent += item.Jumlah
	}
	return spent
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action, entityID string, meta map[string]any) {
	if s.audit == nil || actor == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "ceiling", EntityID: entityID, Meta: meta})
}

// bumpCache invalidates derived aggregates after a successful write.
func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}
