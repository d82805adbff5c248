package model

import "time"

type EmailKind string

const (
	EmailAutoResponse  EmailKind = "auto_response"
	EmailVerification  EmailKind = "verification"
	EmailNotification  EmailKind = "notification"
	EmailPasswordReset EmailKind = "password_reset"
	EmailConfirmation  EmailKind = "confirmation"
)

type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// OutboxEmail is a queued message waiting for the dispatcher.
type OutboxEmail struct {
	ID        int64
	MessageID string
	To        string
	Subject   string
	Content   string
	Kind      EmailKind
	RuleID    *int64
	Status    EmailStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}
