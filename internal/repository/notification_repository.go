//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) (*model.Notification, error)
	List(ctx context.Context, limit int) ([]model.Notification, error)
}

type notificationRepository struct {
	db dbtx
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n model.Notification) (*model.Notification, error) {
	n.ID = snowflake.NextID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload := n.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, title, body, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, string(n.Kind), n.Title, n.Body, string(raw), formatTime(n.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns the newest notifications first.
func (r *notificationRepository) List(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, title, body, payload, created_at FROM notifications
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var kind, payload, createdAt string
		if err := rows.Scan(&n.ID, &kind, &n.Title, &n.Body, &payload, &createdAt); err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		_ = json.Unmarshal([]byte(payload), &n.Payload)
		n.CreatedAt, _ = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}
