package bootstrap

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full Keystone DDL. Statements are idempotent so startup can
// run them unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS groups (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS roles (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS modules (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS permissions (
	id     BIGSERIAL PRIMARY KEY,
	module TEXT NOT NULL,
	action TEXT NOT NULL,
	UNIQUE (module, action)
);

CREATE TABLE IF NOT EXISTS group_users (
	group_id BIGINT NOT NULL REFERENCES groups(id),
	user_id  BIGINT NOT NULL REFERENCES users(id),
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS group_roles (
	group_id BIGINT NOT NULL REFERENCES groups(id),
	role_id  BIGINT NOT NULL REFERENCES roles(id),
	PRIMARY KEY (group_id, role_id)
);

CREATE TABLE IF NOT EXISTS role_permissions (
	role_id       BIGINT NOT NULL REFERENCES roles(id),
	permission_id BIGINT NOT NULL REFERENCES permissions(id),
	PRIMARY KEY (role_id, permission_id)
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL,
	ip         TEXT,
	ua         TEXT
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         BIGSERIAL PRIMARY KEY,
	actor_id   BIGINT NOT NULL,
	action     TEXT NOT NULL,
	entity     TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	meta       JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_group_users_user ON group_users (user_id);
CREATE INDEX IF NOT EXISTS idx_group_roles_role ON group_roles (role_id);
CREATE INDEX IF NOT EXISTS idx_role_permissions_permission ON role_permissions (permission_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs (created_at);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
