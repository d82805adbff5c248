//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"collector/internal/model"
	"collector/pkg/snowflake"
)

// UserRepository stores dashboard accounts.
type UserRepository interface {
	Create(ctx context.Context, user model.User) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, role string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	TouchActivity(ctx context.Context, id int64, at time.Time) error
	ListActiveSince(ctx context.Context, since time.Time) ([]model.User, error)
}

type userRepository struct {
	db dbtx
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, is_active, created_at, updated_at, last_login, last_activity`

func (r *userRepository) Create(ctx context.Context, u model.User) (*model.User, error) {
	u.ID = snowflake.NextID()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, boolToInt(u.IsActive), formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
}

func (r *userRepository) ListActiveSince(ctx context.Context, since time.Time) ([]model.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE last_activity >= ? ORDER BY last_activity DESC`, formatTime(since))
}

func (r *userRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *userRepository) UpdateName(ctx context.Context, id int64, name string) error {
	return r.update(ctx, `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`, name, formatTime(time.Now()), id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.update(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, formatTime(time.Now()), id)
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	return r.update(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, formatTime(time.Now()), id)
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, boolToInt(active), formatTime(time.Now()), id)
}

func (r *userRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	ts := formatTime(at)
	return r.update(ctx, `UPDATE users SET last_login = ?, last_activity = ? WHERE id = ?`, ts, ts, id)
}

func (r *userRepository) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_activity = ? WHERE id = ?`, formatTime(at), id)
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.update(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *userRepository) update(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var active int
	var createdAt, updatedAt string
	var lastLogin, lastActivity sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &active,
		&createdAt, &updatedAt, &lastLogin, &lastActivity); err != nil {
		return model.User{}, err
	}
	u.IsActive = active != 0
	u.CreatedAt, _ = parseTime(createdAt)
	u.UpdatedAt, _ = parseTime(updatedAt)
	u.LastLogin = parseNullableTime(lastLogin)
	u.LastActivity = parseNullableTime(lastActivity)
	return u, nil
}
