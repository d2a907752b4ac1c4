package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
	"github.com/keystone-iam/keystone/internal/shared"
)

type memoryRepo struct {
	groups     map[int64]Group
	groupUsers map[int64][]int64
	groupRoles map[int64][]int64
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:     make(map[int64]Group),
		groupUsers: make(map[int64][]int64),
		groupRoles: make(map[int64][]int64),
	}
}

func (r *memoryRepo) List(ctx context.Context) ([]Group, error) {
	out := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, httpx.ErrNotFound
	}
	return g, nil
}

func (r *memoryRepo) Create(ctx context.Context, name string) (Group, error) {
	for _, g := range r.groups {
		if g.Name == name {
			return Group{}, httpx.ErrConflict
		}
	}
	r.nextID++
	g := Group{ID: r.nextID, Name: name}
	r.groups[g.ID] = g
	return g, nil
}

func (r *memoryRepo) Rename(ctx context.Context, id int64, name string) error {
	g, ok := r.groups[id]
	if !ok {
		return httpx.ErrNotFound
	}
	g.Name = name
	r.groups[id] = g
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.groups[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.groups, id)
	delete(r.groupUsers, id)
	delete(r.groupRoles, id)
	return nil
}

func (r *memoryRepo) ReplaceUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	if _, ok := r.groups[groupID]; !ok {
		return httpx.ErrNotFound
	}
	r.groupUsers[groupID] = append([]int64(nil), userIDs...)
	return nil
}

func (r *memoryRepo) ReplaceRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	if _, ok := r.groups[groupID]; !ok {
		return httpx.ErrNotFound
	}
	r.groupRoles[groupID] = append([]int64(nil), roleIDs...)
	return nil
}

func (r *memoryRepo) ListUsers(ctx context.Context, groupID int64) ([]Member, error) {
	out := make([]Member, 0)
	for _, id := range r.groupUsers[groupID] {
		out = append(out, Member{ID: id})
	}
	return out, nil
}

func (r *memoryRepo) ListRoles(ctx context.Context, groupID int64) ([]RoleRef, error) {
	out := make([]RoleRef, 0)
	for _, id := range r.groupRoles[groupID] {
		out = append(out, RoleRef{ID: id})
	}
	return out, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAssignUsersRejectsEmptyList(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Ops")
	require.NoError(t, err)

	err = svc.AssignUsers(ctx, 1, group.ID, nil)
	require.ErrorIs(t, err, httpx.ErrInvalidInput)

	err = svc.AssignUsers(ctx, 1, group.ID, []int64{})
	require.ErrorIs(t, err, httpx.ErrInvalidInput)
}

func TestAssignRolesRejectsEmptyList(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Ops")
	require.NoError(t, err)

	err = svc.AssignRoles(ctx, 1, group.ID, []int64{})
	require.ErrorIs(t, err, httpx.ErrInvalidInput)
}

func TestAssignUsersReplacesWholesale(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Ops")
	require.NoError(t, err)

	require.NoError(t, svc.AssignUsers(ctx, 1, group.ID, []int64{2, 3}))
	members, err := svc.Users(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// A second assignment replaces, it does not append.
	require.NoError(t, svc.AssignUsers(ctx, 1, group.ID, []int64{4}))
	members, err = svc.Users(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.EqualValues(t, 4, members[0].ID)
}

func TestAssignUsersIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	group, err := svc.Create(ctx, 1, "Ops")
	require.NoError(t, err)

	require.NoError(t, svc.AssignUsers(ctx, 1, group.ID, []int64{2, 3}))
	require.NoError(t, svc.AssignUsers(ctx, 1, group.ID, []int64{2, 3}))
	members, err := svc.Users(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestAssignUsersUnknownGroup(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.AssignUsers(context.Background(), 1, 999, []int64{2})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestMutationsAreAudited(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)
	ctx := context.Background()

	group, err := svc.Create(ctx, 42, "Ops")
	require.NoError(t, err)
	require.NoError(t, svc.Rename(ctx, 42, group.ID, "Operations"))
	require.NoError(t, svc.AssignRoles(ctx, 42, group.ID, []int64{5}))
	require.NoError(t, svc.Delete(ctx, 42, group.ID))

	require.Len(t, audit.logs, 4)
	require.Equal(t, "group.create", audit.logs[0].Action)
	require.Equal(t, "group.assign_roles", audit.logs[2].Action)
	for _, log := range audit.logs {
		require.EqualValues(t, 42, log.ActorID)
		require.Equal(t, "group", log.Entity)
	}
}
