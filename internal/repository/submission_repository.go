//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// DomainCount is the number of submissions from one email domain.
type DomainCount struct {
	Domain string
	Count  int
}

// SubmissionRepository stores the emails collection.
type SubmissionRepository interface {
	Create(ctx context.Context, submission model.Submission) (*model.Submission, error)
	GetByID(ctx context.Context, id int64) (*model.Submission, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error)
	Count(ctx context.Context, filter model.SubmissionFilter) (int, error)
	ListSince(ctx context.Context, since time.Time) ([]model.Submission, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	TopDomains(ctx context.Context, limit int) ([]DomainCount, error)
	DistinctUserAgents(ctx context.Context) ([]string, error)
}

type submissionRepository struct {
	db dbtx
}

func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

const submissionColumns = `id, email, message, user_agent, ip_address, locale, created_at`

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return strings.ToLower(email[i+1:])
	}
	return ""
}

func (r *submissionRepository) Create(ctx context.Context, s model.Submission) (*model.Submission, error) {
	s.ID = snowflake.NextID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emails (id, email, message, user_agent, ip_address, locale, domain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Email, s.Message, s.UserAgent, s.IPAddress, s.Locale, emailDomain(s.Email), formatTime(s.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM emails WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func filterClause(filter model.SubmissionFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		conds = append(conds, `(lower(email) LIKE ? ESCAPE '\' OR lower(message) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns matching submissions newest first. Limit <= 0 returns all rows.
func (r *submissionRepository) List(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + submissionColumns + ` FROM emails` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *submissionRepository) Count(ctx context.Context, filter model.SubmissionFilter) (int, error) {
	where, args := filterClause(filter)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`+where, args...).Scan(&count)
	return count, err
}

func (r *submissionRepository) ListSince(ctx context.Context, since time.Time) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM emails WHERE created_at >= ? ORDER BY created_at`,
		formatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *submissionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails WHERE created_at >= ?`, formatTime(since)).Scan(&count)
	return count, err
}

func (r *submissionRepository) TopDomains(ctx context.Context, limit int) ([]DomainCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT domain, COUNT(*) AS n FROM emails
		WHERE domain != ''
		GROUP BY domain ORDER BY n DESC, domain ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DomainCount
	for rows.Next() {
		var d DomainCount
		if err := rows.Scan(&d.Domain, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *submissionRepository) DistinctUserAgents(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_agent FROM emails WHERE user_agent != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ua string
		if err := rows.Scan(&ua); err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (model.Submission, error) {
	var s model.Submission
	var createdAt string
	if err := row.Scan(&s.ID, &s.Email, &s.Message, &s.UserAgent, &s.IPAddress, &s.Locale, &createdAt); err != nil {
		return model.Submission{}, err
	}
	s.CreatedAt, _ = parseTime(createdAt)
	return s, nil
}

func scanSubmissions(rows *sql.Rows) ([]model.Submission, error) {
	var out []model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
