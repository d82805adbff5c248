//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// AnalyticsRepository stores page and form events of the public site.
type AnalyticsRepository interface {
	Create(ctx context.Context, event model.AnalyticsEvent) error
	CountSessions(ctx context.Context, action model.AnalyticsAction) (int, error)
	CountEvents(ctx context.Context, action model.AnalyticsAction) (int, error)
	ListEvents(ctx context.Context, action model.AnalyticsAction) ([]model.AnalyticsEvent, error)
}

type analyticsRepository struct {
	db dbtx
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Create(ctx context.Context, e model.AnalyticsEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics (id, action, session_id, user_agent, referrer, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snowflake.NextID(), string(e.Action), e.SessionID, e.UserAgent, e.Referrer, e.Language, formatTime(e.CreatedAt))
	return err
}

// CountSessions counts distinct sessions that produced action.
func (r *analyticsRepository) CountSessions(ctx context.Context, action model.AnalyticsAction) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM analytics WHERE action = ?`, string(action)).Scan(&n)
	return n, err
}

func (r *analyticsRepository) CountEvents(ctx context.Context, action model.AnalyticsAction) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics WHERE action = ?`, string(action)).Scan(&n)
	return n, err
}

func (r *analyticsRepository) ListEvents(ctx context.Context, action model.AnalyticsAction) ([]model.AnalyticsEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, session_id, user_agent, referrer, language, created_at
		FROM analytics WHERE action = ? ORDER BY created_at
	`, string(action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AnalyticsEvent
	for rows.Next() {
		var e model.AnalyticsEvent
		var a, createdAt string
		if err := rows.Scan(&e.ID, &a, &e.SessionID, &e.UserAgent, &e.Referrer, &e.Language, &createdAt); err != nil {
			return nil, err
		}
		e.Action = model.AnalyticsAction(a)
		e.CreatedAt, _ = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
