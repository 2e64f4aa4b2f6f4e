package db

import (
	"database/sql"
	"fmt"
)

// Column types that differ between the two dialects.
type dialectTypes struct {
	uuid      string
	timestamp string
	json      string
}

var dialects = map[string]dialectTypes{
	DriverPostgres: {uuid: "UUID", timestamp: "TIMESTAMPTZ", json: "JSONB"},
	DriverSQLite:   {uuid: "TEXT", timestamp: "TIMESTAMP", json: "TEXT"},
}

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id %[1]s PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    nickname VARCHAR(30) NOT NULL UNIQUE,
    first_name VARCHAR(100),
    last_name VARCHAR(100),
    bio TEXT,
    profile_picture_url TEXT,
    linkedin_profile_url TEXT,
    github_profile_url TEXT,
    role VARCHAR(20) NOT NULL DEFAULT 'AUTHENTICATED',
    is_professional BOOLEAN NOT NULL DEFAULT FALSE,
    password_hash TEXT NOT NULL,
    failed_login_attempts INTEGER NOT NULL DEFAULT 0,
    is_locked BOOLEAN NOT NULL DEFAULT FALSE,
    last_login_at %[2]s,
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);
`

const schemaRefreshTokens = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    id %[1]s PRIMARY KEY,
    user_id %[1]s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at %[2]s NOT NULL,
    revoked_at %[2]s,
    created_at %[2]s NOT NULL
);
`

const schemaAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    id %[1]s PRIMARY KEY,
    occurred_at %[2]s NOT NULL,
    type VARCHAR(64) NOT NULL,
    actor_id %[1]s,
    subject_id %[1]s,
    message TEXT NOT NULL,
    meta %[3]s
);
`

const (
	indexRefreshTokensUser = `CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens (user_id);`
	indexAuditOccurredAt   = `CREATE INDEX IF NOT EXISTS idx_audit_events_occurred_at ON audit_events (occurred_at);`
)

// EnsureSchema creates the tables for driver if they are missing.
func EnsureSchema(db *sql.DB, driver string) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		fmt.Sprintf(schemaUsers, d.uuid, d.timestamp),
		fmt.Sprintf(schemaRefreshTokens, d.uuid, d.timestamp),
		fmt.Sprintf(schemaAuditEvents, d.uuid, d.timestamp, d.json),
		indexRefreshTokensUser,
		indexAuditOccurredAt,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
