//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"collector/internal/model"
)

// TemplateRepository stores the email_templates collection keyed by slug.
type TemplateRepository interface {
	Upsert(ctx context.Context, t model.Template) (*model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
	List(ctx context.Context) ([]model.Template, error)
	Delete(ctx context.Context, id string) error
}

type templateRepository struct {
	db dbtx
}

func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Upsert(ctx context.Context, t model.Template) (*model.Template, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Variables == nil {
		t.Variables = []string{}
	}
	vars, err := json.Marshal(t.Variables)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, name, subject, content, variables, builtin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			subject = excluded.subject,
			content = excluded.content,
			variables = excluded.variables,
			updated_at = excluded.updated_at
	`, t.ID, t.Name, t.Subject, t.Content, string(vars), boolToInt(t.Builtin), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const templateColumns = `id, name, subject, content, variables, builtin, created_at, updated_at`

func (r *templateRepository) Get(ctx context.Context, id string) (*model.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]model.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY builtin DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func scanTemplate(row rowScanner) (model.Template, error) {
	var t model.Template
	var vars, createdAt, updatedAt string
	var builtin int
	if err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &vars, &builtin, &createdAt, &updatedAt); err != nil {
		return model.Template{}, err
	}
	if err := json.Unmarshal([]byte(vars), &t.Variables); err != nil {
		t.Variables = nil
	}
	t.Builtin = builtin != 0
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	return t, nil
}
