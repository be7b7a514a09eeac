package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Profile, error)
	Get(ctx context.Context, id string) (Profile, error)
	Upsert(ctx context.Context, profile Profile) (Profile, error)
	Delete(ctx context.Context, id string) error
}

// AuditPort records admin actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles profile management. All mutations are admin operations;
// there is no self-service registration.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// UpsertInput describes a profile create/update payload.
type UpsertInput struct {
	ID         string
	FullName   string
	Role       shared.Role
	Department string
	Password   string
}

// List returns all profiles ordered by name.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// Get returns a single profile.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Upsert creates or updates a profile. A new password, when supplied, is
// stored as a bcrypt hash; an empty password keeps the existing hash.
func (s *Service) Upsert(ctx context.Context, actor *shared.Actor, input UpsertInput) (Profile, error) {
	if actor == nil || actor.Role != shared.RoleAdmin {
		return Profile{}, fmt.Errorf("%w: only admin may manage profiles", ErrValidation)
	}
	if strings.TrimSpace(input.FullName) == "" {
		return Profile{}, fmt.Errorf("%w: full name required", ErrValidation)
	}
	if !input.Role.Valid() {
		return Profile{}, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}

	profile := Profile{
		ID:         input.ID,
		FullName:   strings.TrimSpace(input.FullName),
		Role:       input.Role,
		Department: strings.TrimSpace(input.Department),
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	} else if existing, err := s.repo.Get(ctx, profile.ID); err == nil {
		profile.PasswordHash = existing.PasswordHash
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return Profile{}, err
		}
		profile.PasswordHash = string(hash)
	}
	if profile.PasswordHash == "" {
		return Profile{}, fmt.Errorf("%w: password required for new profile", ErrValidation)
	}

	saved, err := s.repo.Upsert(ctx, profile)
	if err != nil {
		return Profile{}, err
	}
	s.recordAudit(ctx, actor, "PROFILE_UPSERT", saved.ID, map[string]any{"name": saved.FullName, "role": string(saved.Role)})
	return saved, nil
}

// Delete removes a profile.
func (s *Service) Delete(ctx context.Context, actor *shared.Actor, id string) error {
	if actor == nil || actor.Role != shared.RoleAdmin {
		return fmt.Errorf("%w: only admin may manage profiles", ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "PROFILE_DELETE", id, nil)
	return nil
}

// ActorByID resolves a profile into the authorization actor shape.
func (s *Service) ActorByID(ctx context.Context, id string) (*shared.Actor, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &shared.Actor{ID: p.ID, Name: p.FullName, Role: p.Role, Department: p.Department}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "profiles", EntityID: entityID, Meta: meta})
}
