package modules

import (
	"context"
	"strconv"

	"github.com/keystone-iam/keystone/internal/shared"
)

// RepositoryPort defines data access methods for modules.
type RepositoryPort interface {
	List(ctx context.Context) ([]Module, error)
	Get(ctx context.Context, id int64) (Module, error)
	Create(ctx context.Context, name string) (Module, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles module management business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all modules.
func (s *Service) List(ctx context.Context) ([]Module, error) {
	return s.repo.List(ctx)
}

// Get fetches a module by id.
func (s *Service) Get(ctx context.Context, id int64) (Module, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new module.
func (s *Service) Create(ctx context.Context, actorID int64, name string) (Module, error) {
	mod, err := s.repo.Create(ctx, name)
	if err != nil {
		return Module{}, err
	}
	s.record(ctx, actorID, "module.create", mod.ID)
	return mod, nil
}

// Rename updates a module name.
func (s *Service) Rename(ctx context.Context, actorID, id int64, name string) error {
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return err
	}
	s.record(ctx, actorID, "module.rename", id)
	return nil
}

// Delete removes a module.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "module.delete", id)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "module",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}
