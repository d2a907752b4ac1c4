package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-iam/keystone/internal/platform/db"
	"github.com/keystone-iam/keystone/internal/shared"
)

const (
	adminUsername = "admin"
	adminPassword = "admin"
	adminGroup    = "Admins"
	adminRole     = "SuperAdmin"
)

// Seed installs the break-glass administrator: the admin account, the Admins
// group, the SuperAdmin role and the full permission matrix over the canonical
// modules, all linked together. It is a no-op when any users already exist, so
// a wiped permission table is not silently repopulated behind an operator's
// back.
func Seed(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool) error {
	var userCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var adminID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
			adminUsername, string(hash)).Scan(&adminID); err != nil {
			return err
		}

		var groupID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO groups (name) VALUES ($1) RETURNING id`, adminGroup).Scan(&groupID); err != nil {
			return err
		}

		var roleID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO roles (name) VALUES ($1) RETURNING id`, adminRole).Scan(&roleID); err != nil {
			return err
		}

		for _, module := range shared.CanonicalModules() {
			if _, err := tx.Exec(ctx,
				`INSERT INTO modules (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, module); err != nil {
				return err
			}
			for _, action := range shared.CanonicalActions() {
				var permID int64
				if err := tx.QueryRow(ctx,
					`INSERT INTO permissions (module, action) VALUES ($1, $2)
ON CONFLICT (module, action) DO UPDATE SET module = EXCLUDED.module
RETURNING id`, module, action).Scan(&permID); err != nil {
					return err
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					roleID, permID); err != nil {
					return err
				}
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO group_users (group_id, user_id) VALUES ($1, $2)`, groupID, adminID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_roles (group_id, role_id) VALUES ($1, $2)`, groupID, roleID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	logger.Info("seeded break-glass administrator",
		slog.String("username", adminUsername),
		slog.String("group", adminGroup),
		slog.String("role", adminRole))
	return nil
}
