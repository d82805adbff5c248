//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/autoresponder"
	"collector/internal/model"
	"collector/pkg/snowflake"
)

// RuleRepository stores auto_responder_rules and auto_response_logs.
type RuleRepository interface {
	Create(ctx context.Context, rule autoresponder.Rule) (*autoresponder.Rule, error)
	Update(ctx context.Context, rule autoresponder.Rule) error
	Get(ctx context.Context, id int64) (*autoresponder.Rule, error)
	List(ctx context.Context) ([]autoresponder.Rule, error)
	Delete(ctx context.Context, id int64) error
	LogResponse(ctx context.Context, entry model.AutoResponseLog) error
	ListResponses(ctx context.Context, limit int) ([]model.AutoResponseLog, error)
}

type ruleRepository struct {
	db dbtx
}

func NewRuleRepository(db *sql.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule autoresponder.Rule) (*autoresponder.Rule, error) {
	kind, params, err := autoresponder.Encode(rule.Condition)
	if err != nil {
		return nil, err
	}
	rule.ID = snowflake.NextID()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO auto_responder_rules (id, name, template_id, condition_kind, condition_params, priority, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.Name, rule.TemplateID, kind, params, rule.Priority, boolToInt(rule.Enabled), formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule autoresponder.Rule) error {
	kind, params, err := autoresponder.Encode(rule.Condition)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE auto_responder_rules
		SET name = ?, template_id = ?, condition_kind = ?, condition_params = ?, priority = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`, rule.Name, rule.TemplateID, kind, params, rule.Priority, boolToInt(rule.Enabled), formatTime(time.Now()), rule.ID)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

const ruleColumns = `id, name, template_id, condition_kind, condition_params, priority, enabled, created_at, updated_at`

func (r *ruleRepository) Get(ctx context.Context, id int64) (*autoresponder.Rule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM auto_responder_rules WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context) ([]autoresponder.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM auto_responder_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []autoresponder.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *ruleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auto_responder_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func (r *ruleRepository) LogResponse(ctx context.Context, entry model.AutoResponseLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auto_response_logs (id, rule_id, email, sent_at) VALUES (?, ?, ?, ?)
	`, snowflake.NextID(), entry.RuleID, entry.Email, formatTime(entry.SentAt))
	return err
}

func (r *ruleRepository) ListResponses(ctx context.Context, limit int) ([]model.AutoResponseLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, email, sent_at FROM auto_response_logs ORDER BY sent_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AutoResponseLog
	for rows.Next() {
		var l model.AutoResponseLog
		var sentAt string
		if err := rows.Scan(&l.ID, &l.RuleID, &l.Email, &sentAt); err != nil {
			return nil, err
		}
		l.SentAt, _ = parseTime(sentAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// scanRule fails when a stored condition can no longer be decoded.
func scanRule(row rowScanner) (autoresponder.Rule, error) {
	var rule autoresponder.Rule
	var kind, params, createdAt, updatedAt string
	var enabled int
	if err := row.Scan(&rule.ID, &rule.Name, &rule.TemplateID, &kind, &params, &rule.Priority, &enabled, &createdAt, &updatedAt); err != nil {
		return autoresponder.Rule{}, err
	}
	cond, err := autoresponder.Decode(kind, params)
	if err != nil {
		return autoresponder.Rule{}, err
	}
	rule.Condition = cond
	rule.Enabled = enabled != 0
	rule.CreatedAt, _ = parseTime(createdAt)
	rule.UpdatedAt, _ = parseTime(updatedAt)
	return rule, nil
}
