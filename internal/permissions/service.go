package permissions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
	"github.com/keystone-iam/keystone/internal/shared"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	List(ctx context.Context) ([]Permission, error)
	Get(ctx context.Context, id int64) (Permission, error)
	Create(ctx context.Context, module, action string) (Permission, error)
	Update(ctx context.Context, id int64, module, action string) error
	Delete(ctx context.Context, id int64) error
	ReplaceForRole(ctx context.Context, roleID int64, permissionIDs []int64) error
	ListForRole(ctx context.Context, roleID int64) ([]Permission, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles permission management business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all permissions.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Get fetches a permission by id.
func (s *Service) Get(ctx context.Context, id int64) (Permission, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new permission.
func (s *Service) Create(ctx context.Context, actorID int64, module, action string) (Permission, error) {
	perm, err := s.repo.Create(ctx, module, action)
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, actorID, "permission.create", perm.ID, map[string]any{"module": module, "action": action})
	return perm, nil
}

// Update rewrites a permission's module and action pair.
func (s *Service) Update(ctx context.Context, actorID, id int64, module, action string) error {
	if err := s.repo.Update(ctx, id, module, action); err != nil {
		return err
	}
	s.record(ctx, actorID, "permission.update", id, map[string]any{"module": module, "action": action})
	return nil
}

// Delete removes a permission and its role assignment rows.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "permission.delete", id, nil)
	return nil
}

// AssignToRole replaces the role's permission set wholesale. An empty id list
// is invalid input, not "revoke all".
func (s *Service) AssignToRole(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return fmt.Errorf("permissionIds list required: %w", httpx.ErrInvalidInput)
	}
	if err := s.repo.ReplaceForRole(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "permission.assign_role", roleID, map[string]any{"permission_ids": permissionIDs})
	return nil
}

// ForRole returns the permissions assigned to a role.
func (s *Service) ForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListForRole(ctx, roleID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
