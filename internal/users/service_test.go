package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) Create(ctx context.Context, username, passwordHash string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return User{}, httpx.ErrConflict
		}
	}
	r.nextID++
	u := User{ID: r.nextID, Username: username}
	r.users[u.ID] = u
	r.hashes[u.ID] = passwordHash
	return u, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, username string, passwordHash *string) error {
	u, ok := r.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.Username = username
	r.users[id] = u
	if passwordHash != nil {
		r.hashes[id] = *passwordHash
	}
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.users, id)
	delete(r.hashes, id)
	return nil
}

func (r *memoryRepo) ListGroups(ctx context.Context, userID int64) ([]GroupRef, error) {
	return []GroupRef{}, nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), 1, "alice", "s3cret-pass")
	require.NoError(t, err)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "s3cret-pass", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "alice", "s3cret-pass")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, "alice", "other-pass-1")
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestUpdateWithoutPasswordKeepsHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, 1, "alice", "s3cret-pass")
	require.NoError(t, err)
	before := repo.hashes[user.ID]

	require.NoError(t, svc.Update(ctx, 1, user.ID, "alice2", ""))
	require.Equal(t, before, repo.hashes[user.ID])
	require.Equal(t, "alice2", repo.users[user.ID].Username)
}

func TestUpdateWithPasswordRotatesHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, 1, "alice", "s3cret-pass")
	require.NoError(t, err)
	before := repo.hashes[user.ID]

	require.NoError(t, svc.Update(ctx, 1, user.ID, "alice", "new-password"))
	require.NotEqual(t, before, repo.hashes[user.ID])
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("new-password")))
}

func TestDeleteUnknownUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.Delete(context.Background(), 1, 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
