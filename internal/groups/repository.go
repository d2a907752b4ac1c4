package groups

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

// Repository provides PostgreSQL backed persistence for groups and their
// user and role associations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all groups.
func (r *Repository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// Get fetches a group by id.
func (r *Repository) Get(ctx context.Context, id int64) (Group, error) {
	var g Group
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, fmt.Errorf("group %d: %w", id, httpx.ErrNotFound)
		}
		return Group{}, err
	}
	return g, nil
}

// Create inserts a new group. Name uniqueness is case-sensitive and enforced
// by the database.
func (r *Repository) Create(ctx context.Context, name string) (Group, error) {
	var g Group
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (name) VALUES ($1) RETURNING id, name, created_at`, name).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Group{}, fmt.Errorf("group name %q: %w", name, httpx.ErrConflict)
		}
		return Group{}, err
	}
	return g, nil
}

// Rename updates a group name.
func (r *Repository) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE groups SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group name %q: %w", name, httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// Delete removes the group and cascades over its association rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM group_users WHERE group_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM group_roles WHERE group_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("group %d: %w", id, httpx.ErrNotFound)
		}
		return nil
	})
}

// ReplaceUsers atomically swaps the group's membership for the supplied user
// set. The clear and refill happen in one transaction so a concurrent
// resolution never observes the emptied intermediate state.
func (r *Repository) ReplaceUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureParent(ctx, tx, "groups", groupID); err != nil {
			return err
		}
		if err := ensureExists(ctx, tx, "users", userIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM group_users WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		for _, userID := range userIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO group_users (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				groupID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceRoles atomically swaps the group's role assignments.
func (r *Repository) ReplaceRoles(ctx context.Context, groupID int64, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureParent(ctx, tx, "groups", groupID); err != nil {
			return err
		}
		if err := ensureExists(ctx, tx, "roles", roleIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM group_roles WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO group_roles (group_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				groupID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListUsers returns the members of a group.
func (r *Repository) ListUsers(ctx context.Context, groupID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.username FROM users u
JOIN group_users gu ON gu.user_id = u.id
WHERE gu.group_id = $1
ORDER BY u.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// ListRoles returns the roles assigned to a group.
func (r *Repository) ListRoles(ctx context.Context, groupID int64) ([]RoleRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT ro.id, ro.name FROM roles ro
JOIN group_roles gr ON gr.role_id = ro.id
WHERE gr.group_id = $1
ORDER BY ro.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []RoleRef
	for rows.Next() {
		var ref RoleRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		roles = append(roles, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ensureParent verifies the parent row exists before touching its edges.
func ensureParent(ctx context.Context, tx pgx.Tx, table string, id int64) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := tx.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s id %d: %w", table, id, httpx.ErrNotFound)
	}
	return nil
}

// ensureExists rejects association writes that would introduce edges to ids
// with no backing row.
func ensureExists(ctx context.Context, tx pgx.Tx, table string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT id) FROM %s WHERE id = ANY($1)`, table)
	if err := tx.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return err
	}
	distinct := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}
	if count != len(distinct) {
		return fmt.Errorf("unknown id in %s list: %w", table, httpx.ErrInvalidInput)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
