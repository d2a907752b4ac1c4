package access

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// graphRepo is an in-memory users -> groups -> roles -> permissions graph.
type graphRepo struct {
	mu          sync.Mutex
	permissions map[int64]Grant
	rolePerms   map[int64][]int64
	groupRoles  map[int64][]int64
	groupUsers  map[int64][]int64
	failWith    error
}

func newGraphRepo() *graphRepo {
	return &graphRepo{
		permissions: make(map[int64]Grant),
		rolePerms:   make(map[int64][]int64),
		groupRoles:  make(map[int64][]int64),
		groupUsers:  make(map[int64][]int64),
	}
}

func (r *graphRepo) ResolveGrants(ctx context.Context, userID int64) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	seen := make(map[Grant]struct{})
	for groupID, users := range r.groupUsers {
		for _, u := range users {
			if u != userID {
				continue
			}
			for _, roleID := range r.groupRoles[groupID] {
				for _, permID := range r.rolePerms[roleID] {
					if grant, ok := r.permissions[permID]; ok {
						seen[grant] = struct{}{}
					}
				}
			}
		}
	}
	grants := make([]Grant, 0, len(seen))
	for grant := range seen {
		grants = append(grants, grant)
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Module != grants[j].Module {
			return grants[i].Module < grants[j].Module
		}
		return grants[i].Action < grants[j].Action
	})
	return grants, nil
}

func (r *graphRepo) HasGrant(ctx context.Context, userID int64, module, action string) (bool, error) {
	grants, err := r.ResolveGrants(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		if grant.Module == module && grant.Action == action {
			return true, nil
		}
	}
	return false, nil
}

// replaceGroupRoles swaps a group's role set the way the admin API does.
func (r *graphRepo) replaceGroupRoles(groupID int64, roleIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groupRoles[groupID] = append([]int64(nil), roleIDs...)
}

func seedGraph(repo *graphRepo) {
	// permission 1 = users:read, 2 = users:create, 3 = roles:read
	repo.permissions[1] = Grant{Module: "Users", Action: "read"}
	repo.permissions[2] = Grant{Module: "Users", Action: "create"}
	repo.permissions[3] = Grant{Module: "Roles", Action: "read"}
	// role 10 grants users:read+create, role 11 grants users:read and roles:read
	repo.rolePerms[10] = []int64{1, 2}
	repo.rolePerms[11] = []int64{1, 3}
	// group 100 carries role 10, group 101 carries role 11
	repo.groupRoles[100] = []int64{10}
	repo.groupRoles[101] = []int64{11}
	// user 7 is in both groups, user 8 in none
	repo.groupUsers[100] = []int64{7}
	repo.groupUsers[101] = []int64{7}
}

func TestResolvePermissionsUnionsAllPaths(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)

	grants, err := svc.ResolvePermissions(context.Background(), 7)
	require.NoError(t, err)
	// Users:read is reachable via both groups but must appear once.
	require.Equal(t, []Grant{
		{Module: "Roles", Action: "read"},
		{Module: "Users", Action: "create"},
		{Module: "Users", Action: "read"},
	}, grants)
}

func TestResolvePermissionsEmptyGraph(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)

	grants, err := svc.ResolvePermissions(context.Background(), 8)
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestAllowedMatchesResolvedSet(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)
	ctx := context.Background()

	allowed, err := svc.Allowed(ctx, 7, "Users", "create")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.Allowed(ctx, 7, "Roles", "delete")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = svc.Allowed(ctx, 8, "Users", "read")
	require.NoError(t, err)
	require.False(t, allowed)

	// The targeted check agrees with a lookup over the resolved set.
	grants, err := svc.ResolvePermissions(ctx, 7)
	require.NoError(t, err)
	set := NewGrantSet(grants)
	require.True(t, set.Has("Users", "create"))
	require.False(t, set.Has("Roles", "delete"))
}

func TestSimulateAgreesWithGate(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)
	ctx := context.Background()

	pairs := []Grant{
		{Module: "Users", Action: "read"},
		{Module: "Users", Action: "delete"},
		{Module: "Totally", Action: "unknown"},
	}
	for _, pair := range pairs {
		simulated, err := svc.Simulate(ctx, 7, pair.Module, pair.Action)
		require.NoError(t, err)
		enforced, err := svc.Allowed(ctx, 7, pair.Module, pair.Action)
		require.NoError(t, err)
		require.Equal(t, enforced, simulated, "pair %s:%s", pair.Module, pair.Action)
	}
}

func TestReplaceRolesRevokesImmediately(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)
	ctx := context.Background()

	allowed, err := svc.Allowed(ctx, 7, "Users", "create")
	require.NoError(t, err)
	require.True(t, allowed)

	// Swapping group 100 onto role 11 drops the only path to users:create.
	repo.replaceGroupRoles(100, []int64{11})

	allowed, err = svc.Allowed(ctx, 7, "Users", "create")
	require.NoError(t, err)
	require.False(t, allowed)

	grants, err := svc.ResolvePermissions(ctx, 7)
	require.NoError(t, err)
	require.NotContains(t, grants, Grant{Module: "Users", Action: "create"})
}

func TestResolvePermissionsPropagatesStoreError(t *testing.T) {
	repo := newGraphRepo()
	repo.failWith = errors.New("connection reset")
	svc := NewService(repo)

	_, err := svc.ResolvePermissions(context.Background(), 7)
	require.Error(t, err)
}

func TestResolvePermissionsConcurrent(t *testing.T) {
	repo := newGraphRepo()
	seedGraph(repo)
	svc := NewService(repo)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			grants, err := svc.ResolvePermissions(context.Background(), 7)
			if err != nil {
				return err
			}
			if len(grants) != 3 {
				return errors.New("unexpected grant count")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
