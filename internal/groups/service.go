package groups

import (
	"context"
	"fmt"
	"strconv"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
	"github.com/keystone-iam/keystone/internal/shared"
)

// RepositoryPort defines data access methods for groups.
type RepositoryPort interface {
	List(ctx context.Context) ([]Group, error)
	Get(ctx context.Context, id int64) (Group, error)
	Create(ctx context.Context, name string) (Group, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
	ReplaceUsers(ctx context.Context, groupID int64, userIDs []int64) error
	ReplaceRoles(ctx context.Context, groupID int64, roleIDs []int64) error
	ListUsers(ctx context.Context, groupID int64) ([]Member, error)
	ListRoles(ctx context.Context, groupID int64) ([]RoleRef, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles group management business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all groups.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	return s.repo.List(ctx)
}

// Get fetches a group by id.
func (s *Service) Get(ctx context.Context, id int64) (Group, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new group.
func (s *Service) Create(ctx context.Context, actorID int64, name string) (Group, error) {
	group, err := s.repo.Create(ctx, name)
	if err != nil {
		return Group{}, err
	}
	s.record(ctx, actorID, "group.create", group.ID, nil)
	return group, nil
}

// Rename updates a group name.
func (s *Service) Rename(ctx context.Context, actorID, id int64, name string) error {
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return err
	}
	s.record(ctx, actorID, "group.rename", id, map[string]any{"name": name})
	return nil
}

// Delete removes a group and its association rows.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "group.delete", id, nil)
	return nil
}

// AssignUsers replaces the group's membership wholesale. An empty id list is
// invalid input, not "clear all".
func (s *Service) AssignUsers(ctx context.Context, actorID, groupID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("userIds list required: %w", httpx.ErrInvalidInput)
	}
	if err := s.repo.ReplaceUsers(ctx, groupID, userIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "group.assign_users", groupID, map[string]any{"user_ids": userIDs})
	return nil
}

// AssignRoles replaces the group's role set wholesale.
func (s *Service) AssignRoles(ctx context.Context, actorID, groupID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return fmt.Errorf("roleIds list required: %w", httpx.ErrInvalidInput)
	}
	if err := s.repo.ReplaceRoles(ctx, groupID, roleIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "group.assign_roles", groupID, map[string]any{"role_ids": roleIDs})
	return nil
}

// Users returns the members of a group.
func (s *Service) Users(ctx context.Context, groupID int64) ([]Member, error) {
	return s.repo.ListUsers(ctx, groupID)
}

// Roles returns the roles assigned to a group.
func (s *Service) Roles(ctx context.Context, groupID int64) ([]RoleRef, error) {
	return s.repo.ListRoles(ctx, groupID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "group",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
