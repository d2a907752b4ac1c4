package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-iam/keystone/internal/platform/db"
	"github.com/keystone-iam/keystone/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all users.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts a new user with a pre-hashed credential. Username uniqueness
// is enforced by the database; violations surface as a conflict.
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, username, created_at`,
		username, passwordHash).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("username %q: %w", username, httpx.ErrConflict)
		}
		return User{}, err
	}
	return u, nil
}

// Update renames a user and optionally rotates the credential hash. A nil
// passwordHash keeps the stored credential.
func (r *Repository) Update(ctx context.Context, id int64, username string, passwordHash *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $1, password_hash = COALESCE($2, password_hash) WHERE id = $3`,
		username, passwordHash, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", username, httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// Delete removes the user and every association row referencing it, so the
// graph never holds an edge to a deleted account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM group_users WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return nil
	})
}

// ListGroups returns the groups the user belongs to.
func (r *Repository) ListGroups(ctx context.Context, userID int64) ([]GroupRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT g.id, g.name FROM groups g
JOIN group_users gu ON gu.group_id = g.id
WHERE gu.user_id = $1
ORDER BY g.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []GroupRef
	for rows.Next() {
		var g GroupRef
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
