//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/model"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, reset model.PasswordReset) error
	Get(ctx context.Context, token string) (*model.PasswordReset, error)
	MarkUsed(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type passwordResetRepository struct {
	db dbtx
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, p model.PasswordReset) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?)
	`, p.Token, p.UserID, formatTime(p.ExpiresAt), boolToInt(p.Used), formatTime(p.CreatedAt))
	return err
}

func (r *passwordResetRepository) Get(ctx context.Context, token string) (*model.PasswordReset, error) {
	var p model.PasswordReset
	var used int
	var expiresAt, createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, used, created_at FROM password_resets WHERE token = ?
	`, token).Scan(&p.Token, &p.UserID, &expiresAt, &used, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Used = used != 0
	p.ExpiresAt, _ = parseTime(expiresAt)
	p.CreatedAt, _ = parseTime(createdAt)
	return &p, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE password_resets SET used = 1 WHERE token = ? AND used = 0`, token)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// DeleteExpired removes tokens that expired before the given time or were used.
func (r *passwordResetRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at < ? OR used = 1`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
