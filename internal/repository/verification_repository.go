//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// VerificationRepository stores the email_verifications collection.
type VerificationRepository interface {
	Create(ctx context.Context, v model.Verification) (*model.Verification, error)
	GetByToken(ctx context.Context, token string) (*model.Verification, error)
	MarkVerified(ctx context.Context, id int64, at time.Time) error
	CountVerifiedEmails(ctx context.Context) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type verificationRepository struct {
	db dbtx
}

func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, v model.Verification) (*model.Verification, error) {
	v.ID = snowflake.NextID()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_verifications (id, email, token, verified, created_at, expires_at, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.Email, v.Token, boolToInt(v.Verified), formatTime(v.CreatedAt), formatTime(v.ExpiresAt), nullableTime(v.VerifiedAt))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) GetByToken(ctx context.Context, token string) (*model.Verification, error) {
	var v model.Verification
	var verified int
	var createdAt, expiresAt string
	var verifiedAt sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, token, verified, created_at, expires_at, verified_at
		FROM email_verifications WHERE token = ?
	`, token).Scan(&v.ID, &v.Email, &v.Token, &verified, &createdAt, &expiresAt, &verifiedAt)
	if err != nil {
		return nil, err
	}
	v.Verified = verified != 0
	v.CreatedAt, _ = parseTime(createdAt)
	v.ExpiresAt, _ = parseTime(expiresAt)
	v.VerifiedAt = parseNullableTime(verifiedAt)
	return &v, nil
}

func (r *verificationRepository) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE email_verifications SET verified = 1, verified_at = ? WHERE id = ? AND verified = 0
	`, formatTime(at), id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// CountVerifiedEmails counts distinct addresses with at least one verified token.
func (r *verificationRepository) CountVerifiedEmails(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT email) FROM email_verifications WHERE verified = 1`).Scan(&n)
	return n, err
}

// DeleteExpired removes unverified tokens that expired before the given time.
func (r *verificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM email_verifications WHERE verified = 0 AND expires_at < ?
	`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
