//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// SecurityLogRepository stores the security_logs collection.
type SecurityLogRepository interface {
	Create(ctx context.Context, event model.SecurityEvent) error
	List(ctx context.Context, limit int) ([]model.SecurityEvent, error)
}

type securityLogRepository struct {
	db dbtx
}

func NewSecurityLogRepository(db *sql.DB) SecurityLogRepository {
	return &securityLogRepository{db: db}
}

func (r *securityLogRepository) Create(ctx context.Context, e model.SecurityEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_logs (id, user_id, event, details, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snowflake.NextID(), nullableInt64(e.UserID), e.Event, e.Details, e.IPAddress, e.UserAgent, formatTime(e.CreatedAt))
	return err
}

func (r *securityLogRepository) List(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, event, details, ip_address, user_agent, created_at
		FROM security_logs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.SecurityEvent
	for rows.Next() {
		var e model.SecurityEvent
		var userID sql.NullInt64
		var createdAt string
		if err := rows.Scan(&e.ID, &userID, &e.Event, &e.Details, &e.IPAddress, &e.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = nullableInt64Ptr(userID)
		e.CreatedAt, _ = parseTime(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
