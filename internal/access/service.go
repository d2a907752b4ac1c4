package access

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Service resolves effective permissions for principals. Resolution is a pure
// read over the current store snapshot; nothing is cached between calls.
type Service struct {
	repo    Repository
	resolve singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolvePermissions returns the deduplicated (module, action) set reachable
// from the user. A user in no group resolves to the empty set, not an error.
// Concurrent resolutions for the same user share one in-flight store read.
func (s *Service) ResolvePermissions(ctx context.Context, userID int64) ([]Grant, error) {
	key := fmt.Sprintf("grants:%d", userID)
	ch := s.resolve.DoChan(key, func() (interface{}, error) {
		return s.repo.ResolveGrants(ctx, userID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Grant), nil
	}
}

// Allowed reports whether at least one path user -> group -> role -> permission
// matches the (module, action) pair.
func (s *Service) Allowed(ctx context.Context, userID int64, module, action string) (bool, error) {
	return s.repo.HasGrant(ctx, userID, module, action)
}

// Simulate answers "would this principal be allowed (module, action)" without
// performing anything. Unknown module or action strings simply yield false.
func (s *Service) Simulate(ctx context.Context, userID int64, module, action string) (bool, error) {
	return s.Allowed(ctx, userID, module, action)
}
