package users

import (
	"context"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-iam/keystone/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, username, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, username string, passwordHash *string) error
	Delete(ctx context.Context, id int64) error
	ListGroups(ctx context.Context, userID int64) ([]GroupRef, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account with a bcrypt-hashed credential.
func (s *Service) Create(ctx context.Context, actorID int64, username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, username, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.create", user.ID)
	return user, nil
}

// Update renames a user; a non-empty password also rotates the credential.
func (s *Service) Update(ctx context.Context, actorID, id int64, username, password string) error {
	var hash *string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		str := string(h)
		hash = &str
	}
	if err := s.repo.Update(ctx, id, username, hash); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.update", id)
	return nil
}

// Delete removes a user and its group memberships.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.delete", id)
	return nil
}

// Groups returns the groups a user belongs to.
func (s *Service) Groups(ctx context.Context, userID int64) ([]GroupRef, error) {
	return s.repo.ListGroups(ctx, userID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}
