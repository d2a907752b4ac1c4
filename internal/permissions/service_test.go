package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
)

type memoryRepo struct {
	perms     map[int64]Permission
	rolePerms map[int64][]int64
	roles     map[int64]struct{}
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		perms:     make(map[int64]Permission),
		rolePerms: make(map[int64][]int64),
		roles:     map[int64]struct{}{1: {}},
	}
}

func (r *memoryRepo) List(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Permission, error) {
	p, ok := r.perms[id]
	if !ok {
		return Permission{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, module, action string) (Permission, error) {
	for _, p := range r.perms {
		if p.Module == module && p.Action == action {
			return Permission{}, httpx.ErrConflict
		}
	}
	r.nextID++
	p := Permission{ID: r.nextID, Module: module, Action: action}
	r.perms[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, module, action string) error {
	if _, ok := r.perms[id]; !ok {
		return httpx.ErrNotFound
	}
	r.perms[id] = Permission{ID: id, Module: module, Action: action}
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.perms[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.perms, id)
	for roleID, ids := range r.rolePerms {
		kept := ids[:0]
		for _, permID := range ids {
			if permID != id {
				kept = append(kept, permID)
			}
		}
		r.rolePerms[roleID] = kept
	}
	return nil
}

func (r *memoryRepo) ReplaceForRole(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, ok := r.roles[roleID]; !ok {
		return httpx.ErrNotFound
	}
	for _, id := range permissionIDs {
		if _, ok := r.perms[id]; !ok {
			return httpx.ErrInvalidInput
		}
	}
	r.rolePerms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (r *memoryRepo) ListForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	out := make([]Permission, 0)
	for _, id := range r.rolePerms[roleID] {
		out = append(out, r.perms[id])
	}
	return out, nil
}

func TestCreateDuplicatePair(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "Users", "read")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, "Users", "read")
	require.ErrorIs(t, err, httpx.ErrConflict)

	// Same action under a different module is a distinct permission.
	_, err = svc.Create(ctx, 1, "Groups", "read")
	require.NoError(t, err)
}

func TestAssignToRoleRejectsEmptyList(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.AssignToRole(context.Background(), 1, 1, []int64{})
	require.ErrorIs(t, err, httpx.ErrInvalidInput)
}

func TestAssignToRoleReplacesWholesale(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	read, err := svc.Create(ctx, 1, "Users", "read")
	require.NoError(t, err)
	write, err := svc.Create(ctx, 1, "Users", "update")
	require.NoError(t, err)

	require.NoError(t, svc.AssignToRole(ctx, 1, 1, []int64{read.ID, write.ID}))
	perms, err := svc.ForRole(ctx, 1)
	require.NoError(t, err)
	require.Len(t, perms, 2)

	require.NoError(t, svc.AssignToRole(ctx, 1, 1, []int64{read.ID}))
	perms, err = svc.ForRole(ctx, 1)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, "read", perms[0].Action)
}

func TestAssignToRoleUnknownPermission(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.AssignToRole(context.Background(), 1, 1, []int64{404})
	require.ErrorIs(t, err, httpx.ErrInvalidInput)
}

func TestDeleteDetachesFromRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	perm, err := svc.Create(ctx, 1, "Users", "read")
	require.NoError(t, err)
	require.NoError(t, svc.AssignToRole(ctx, 1, 1, []int64{perm.ID}))

	require.NoError(t, svc.Delete(ctx, 1, perm.ID))
	perms, err := svc.ForRole(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, perms)
}
