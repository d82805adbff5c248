package db

import (
	"database/sql"
	"fmt"
)

// Base schema - uses Snowflake IDs (no AUTOINCREMENT)
const baseSchema = `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY,
  email TEXT NOT NULL,
  message TEXT NOT NULL,
  user_agent TEXT NOT NULL DEFAULT '',
  ip_address TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_created_at ON emails(created_at);
CREATE INDEX IF NOT EXISTS idx_emails_email ON emails(email);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  last_login TEXT
);

CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("migrate base schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	// Migration 1: Add locale column to emails
	ok, err := hasColumn(db, "emails", "locale")
	if err != nil {
		return fmt.Errorf("check locale column: %w", err)
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE emails ADD COLUMN locale TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add locale column: %w", err)
		}
	}

	// Migration 2: Add domain column to emails and backfill it from the address
	ok, err = hasColumn(db, "emails", "domain")
	if err != nil {
		return fmt.Errorf("check domain column: %w", err)
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE emails ADD COLUMN domain TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add domain column: %w", err)
		}
	}
	if _, err := db.Exec(`
		UPDATE emails SET domain = lower(substr(email, instr(email, '@') + 1))
		WHERE domain = '' AND instr(email, '@') > 0
	`); err != nil {
		return fmt.Errorf("backfill email domain: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_emails_domain ON emails(domain)`); err != nil {
		return fmt.Errorf("create idx_emails_domain: %w", err)
	}

	// Migration 3: Track last activity for the active users view
	ok, err = hasColumn(db, "users", "last_activity")
	if err != nil {
		return fmt.Errorf("check last_activity column: %w", err)
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE users ADD COLUMN last_activity TEXT`); err != nil {
			return fmt.Errorf("add last_activity column: %w", err)
		}
	}

	// Migration 4: Security log
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS security_logs (
			id INTEGER PRIMARY KEY,
			user_id INTEGER,
			event TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create security_logs table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_security_logs_created_at ON security_logs(created_at)`); err != nil {
		return fmt.Errorf("create idx_security_logs_created_at: %w", err)
	}

	// Migration 5: Password reset tokens
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS password_resets (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)
	`); err != nil {
		return fmt.Errorf("create password_resets table: %w", err)
	}

	// Migration 6: Email verifications
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS email_verifications (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			verified INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			verified_at TEXT
		)
	`); err != nil {
		return fmt.Errorf("create email_verifications table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_email_verifications_email ON email_verifications(email)`); err != nil {
		return fmt.Errorf("create idx_email_verifications_email: %w", err)
	}

	// Migration 7: Templates, auto-responder rules and their log
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS email_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			variables TEXT NOT NULL DEFAULT '[]',
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create email_templates table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS auto_responder_rules (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			template_id TEXT NOT NULL,
			condition_kind TEXT NOT NULL,
			condition_params TEXT NOT NULL DEFAULT '{}',
			priority INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create auto_responder_rules table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS auto_response_logs (
			id INTEGER PRIMARY KEY,
			rule_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			sent_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create auto_response_logs table: %w", err)
	}

	// Migration 8: Outbox of emails waiting for the dispatcher
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_emails (
			id INTEGER PRIMARY KEY,
			message_id TEXT NOT NULL UNIQUE,
			to_address TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			rule_id INTEGER,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			sent_at TEXT
		)
	`); err != nil {
		return fmt.Errorf("create pending_emails table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_pending_emails_status ON pending_emails(status, created_at)`); err != nil {
		return fmt.Errorf("create idx_pending_emails_status: %w", err)
	}

	// Migration 9: Notification history
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}

	// Migration 10: Analytics events
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analytics (
			id INTEGER PRIMARY KEY,
			action TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			referrer TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create analytics table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_analytics_action ON analytics(action, session_id)`); err != nil {
		return fmt.Errorf("create idx_analytics_action: %w", err)
	}

	return nil
}

func hasColumn(db *sql.DB, table string, column string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
