//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// OutboxRepository stores the pending_emails collection.
type OutboxRepository interface {
	Enqueue(ctx context.Context, email model.OutboxEmail) (*model.OutboxEmail, error)
	ListPending(ctx context.Context, limit int) ([]model.OutboxEmail, error)
	List(ctx context.Context, status model.EmailStatus, limit int) ([]model.OutboxEmail, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkAttemptFailed(ctx context.Context, id int64, lastError string, final bool) error
	CountByStatus(ctx context.Context) (map[model.EmailStatus]int, error)
}

type outboxRepository struct {
	db dbtx
}

func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, e model.OutboxEmail) (*model.OutboxEmail, error) {
	e.ID = snowflake.NextID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.MessageID == "" {
		e.MessageID = ulid.MustNew(ulid.Timestamp(e.CreatedAt), rand.Reader).String()
	}
	e.Status = model.EmailPending

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_emails (id, message_id, to_address, subject, content, kind, rule_id, status, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?)
	`, e.ID, e.MessageID, e.To, e.Subject, e.Content, string(e.Kind), nullableInt64(e.RuleID), string(e.Status), formatTime(e.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const outboxColumns = `id, message_id, to_address, subject, content, kind, rule_id, status, attempts, last_error, created_at, sent_at`

// ListPending returns pending emails oldest first.
func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]model.OutboxEmail, error) {
	return r.query(ctx, `SELECT `+outboxColumns+` FROM pending_emails WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		string(model.EmailPending), limit)
}

// List returns emails newest first; an empty status matches all.
func (r *outboxRepository) List(ctx context.Context, status model.EmailStatus, limit int) ([]model.OutboxEmail, error) {
	if status == "" {
		return r.query(ctx, `SELECT `+outboxColumns+` FROM pending_emails ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	}
	return r.query(ctx, `SELECT `+outboxColumns+` FROM pending_emails WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		string(status), limit)
}

func (r *outboxRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.OutboxEmail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OutboxEmail
	for rows.Next() {
		var e model.OutboxEmail
		var kind, status, createdAt string
		var ruleID sql.NullInt64
		var sentAt sql.NullString
		if err := rows.Scan(&e.ID, &e.MessageID, &e.To, &e.Subject, &e.Content, &kind, &ruleID,
			&status, &e.Attempts, &e.LastError, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		e.Kind = model.EmailKind(kind)
		e.Status = model.EmailStatus(status)
		e.RuleID = nullableInt64Ptr(ruleID)
		e.CreatedAt, _ = parseTime(createdAt)
		e.SentAt = parseNullableTime(sentAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pending_emails SET status = ?, attempts = attempts + 1, last_error = '', sent_at = ? WHERE id = ?
	`, string(model.EmailSent), formatTime(at), id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// MarkAttemptFailed counts a failed attempt; final moves the email to failed.
func (r *outboxRepository) MarkAttemptFailed(ctx context.Context, id int64, lastError string, final bool) error {
	status := model.EmailPending
	if final {
		status = model.EmailFailed
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE pending_emails SET status = ?, attempts = attempts + 1, last_error = ? WHERE id = ?
	`, string(status), lastError, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func (r *outboxRepository) CountByStatus(ctx context.Context) (map[model.EmailStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM pending_emails GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.EmailStatus]int{
		model.EmailPending: 0,
		model.EmailSent:    0,
		model.EmailFailed:  0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.EmailStatus(status)] = n
	}
	return counts, rows.Err()
}
