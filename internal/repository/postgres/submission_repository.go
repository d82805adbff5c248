// Package postgres keeps the emails collection on PostgreSQL for deployments
// that share submissions across several collector instances.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/snowflake"
)

const schema = `
CREATE TABLE IF NOT EXISTS emails (
  id BIGINT PRIMARY KEY,
  email TEXT NOT NULL,
  message TEXT NOT NULL,
  user_agent TEXT NOT NULL DEFAULT '',
  ip_address TEXT NOT NULL DEFAULT '',
  locale TEXT NOT NULL DEFAULT '',
  domain TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_emails_created_at ON emails(created_at);
CREATE INDEX IF NOT EXISTS idx_emails_domain ON emails(domain);
`

// NewPool opens a pool and verifies connectivity within a short timeout.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository ensures the schema exists and returns the repository.
func NewSubmissionRepository(ctx context.Context, pool *pgxpool.Pool) (repository.SubmissionRepository, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure emails schema: %w", err)
	}
	return &submissionRepository{pool: pool}, nil
}

const columns = `id, email, message, user_agent, ip_address, locale, created_at`

func domainOf(email string) string {
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
	_, err := r.pool.Exec(ctx, `
		INSERT INTO emails (id, email, message, user_agent, ip_address, locale, domain, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Email, s.Message, s.UserAgent, s.IPAddress, s.Locale, domainOf(s.Email), s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID maps pgx.ErrNoRows to repository.ErrNoRows like the sqlite store.
func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM emails WHERE id = $1`, id)
	s, err := scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoRows
		}
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM emails WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNoRows
	}
	return nil
}

func where(filter model.SubmissionFilter) (string, []any) {
	var conds []string
	var args []any
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, strings.ToLower(search))
		n := strconv.Itoa(len(args))
		conds = append(conds, "(strpos(lower(email), $"+n+") > 0 OR strpos(lower(message), $"+n+") > 0)")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *submissionRepository) List(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error) {
	clause, args := where(filter)
	query := `SELECT ` + columns + ` FROM emails` + clause + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	return r.query(ctx, query, args...)
}

func (r *submissionRepository) Count(ctx context.Context, filter model.SubmissionFilter) (int, error) {
	clause, args := where(filter)
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM emails`+clause, args...).Scan(&n)
	return n, err
}

func (r *submissionRepository) ListSince(ctx context.Context, since time.Time) ([]model.Submission, error) {
	return r.query(ctx, `SELECT `+columns+` FROM emails WHERE created_at >= $1 ORDER BY created_at`, since)
}

func (r *submissionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM emails WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

func (r *submissionRepository) TopDomains(ctx context.Context, limit int) ([]repository.DomainCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT domain, COUNT(*) AS n FROM emails WHERE domain <> ''
		GROUP BY domain ORDER BY n DESC, domain ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.DomainCount, error) {
		var d repository.DomainCount
		var n int64
		err := row.Scan(&d.Domain, &n)
		d.Count = int(n)
		return d, err
	})
}

func (r *submissionRepository) DistinctUserAgents(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_agent FROM emails WHERE user_agent <> ''`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *submissionRepository) query(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Submission, error) {
		return scan(row)
	})
}

func scan(row pgx.Row) (model.Submission, error) {
	var s model.Submission
	if err := row.Scan(&s.ID, &s.Email, &s.Message, &s.UserAgent, &s.IPAddress, &s.Locale, &s.CreatedAt); err != nil {
		return model.Submission{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}
