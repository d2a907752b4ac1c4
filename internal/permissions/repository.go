package permissions

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

// Repository provides PostgreSQL backed persistence for permissions and their
// role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all permissions.
func (r *Repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, module, action FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// Get fetches a permission by id.
func (r *Repository) Get(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, module, action FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Module, &p.Action)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
		}
		return Permission{}, err
	}
	return p, nil
}

// Create inserts a new permission. The (module, action) pair is unique and
// enforced by the database.
func (r *Repository) Create(ctx context.Context, module, action string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (module, action) VALUES ($1, $2) RETURNING id, module, action`,
		module, action).
		Scan(&p.ID, &p.Module, &p.Action)
	if err != nil {
		if isUniqueViolation(err) {
			return Permission{}, fmt.Errorf("permission %s:%s: %w", module, action, httpx.ErrConflict)
		}
		return Permission{}, err
	}
	return p, nil
}

// Update rewrites a permission's module and action pair.
func (r *Repository) Update(ctx context.Context, id int64, module, action string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET module = $1, action = $2 WHERE id = $3`, module, action, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission %s:%s: %w", module, action, httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// Delete removes the permission and cascades over its role assignments.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
		}
		return nil
	})
}

// ReplaceForRole atomically swaps the role's permission assignments. The clear
// and refill happen in one transaction so a concurrent resolution never
// observes the emptied intermediate state.
func (r *Repository) ReplaceForRole(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureParent(ctx, tx, "roles", roleID); err != nil {
			return err
		}
		if err := ensureExists(ctx, tx, "permissions", permissionIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				roleID, permissionID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListForRole returns the permissions assigned to a role.
func (r *Repository) ListForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.module, p.action FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
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
