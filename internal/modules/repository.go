package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for modules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all modules.
func (r *Repository) List(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM modules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mods []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mods, nil
}

// Get fetches a module by id.
func (r *Repository) Get(ctx context.Context, id int64) (Module, error) {
	var m Module
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM modules WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Module{}, fmt.Errorf("module %d: %w", id, httpx.ErrNotFound)
		}
		return Module{}, err
	}
	return m, nil
}

// Create inserts a new module.
func (r *Repository) Create(ctx context.Context, name string) (Module, error) {
	var m Module
	err := r.pool.QueryRow(ctx,
		`INSERT INTO modules (name) VALUES ($1) RETURNING id, name, created_at`, name).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Module{}, fmt.Errorf("module name %q: %w", name, httpx.ErrConflict)
		}
		return Module{}, err
	}
	return m, nil
}

// Rename updates a module name. Existing permissions keep referring to the
// old name; the decoupling is intentional.
func (r *Repository) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE modules SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("module name %q: %w", name, httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("module %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// Delete removes a module row. No association rows reference module ids, so
// there is nothing to cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("module %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
