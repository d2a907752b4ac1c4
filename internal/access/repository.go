package access

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the store reads needed for permission resolution.
type Repository interface {
	ResolveGrants(ctx context.Context, userID int64) ([]Grant, error)
	HasGrant(ctx context.Context, userID int64, module, action string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ResolveGrants walks the fixed-depth graph in a single join and projects the
// distinct (module, action) pairs. Ordering is deterministic for a snapshot;
// callers treat the result as a set.
func (r *PGRepository) ResolveGrants(ctx context.Context, userID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT p.module, p.action
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN group_roles gr ON gr.role_id = rp.role_id
JOIN group_users gu ON gu.group_id = gr.group_id
WHERE gu.user_id = $1
ORDER BY p.module, p.action`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make([]Grant, 0)
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Module, &g.Action); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// HasGrant answers the targeted existence question without materialising the
// full grant set.
func (r *PGRepository) HasGrant(ctx context.Context, userID int64, module, action string) (bool, error) {
	var allowed bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN group_roles gr ON gr.role_id = rp.role_id
JOIN group_users gu ON gu.group_id = gr.group_id
WHERE gu.user_id = $1 AND p.module = $2 AND p.action = $3)`, userID, module, action).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

var _ Repository = (*PGRepository)(nil)
