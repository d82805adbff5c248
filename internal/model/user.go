package model

import "time"

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
	LastActivity *time.Time
}

// PasswordReset is a single-use token that lets a user choose a new password.
type PasswordReset struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// SecurityEvent is an entry of the security log. UserID is nil for anonymous events.
type SecurityEvent struct {
	ID        int64
	UserID    *int64
	Event     string
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Setting is a key/value pair of runtime configuration.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
