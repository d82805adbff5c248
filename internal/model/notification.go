package model

import "time"

type NotificationKind string

const (
	NotificationNewSubmission NotificationKind = "new_submission"
	NotificationEmailVerified NotificationKind = "email_verified"
	NotificationCustom        NotificationKind = "custom"
)

type Notification struct {
	ID        int64
	Kind      NotificationKind
	Title     string
	Body      string
	Payload   map[string]string
	CreatedAt time.Time
}

// NotificationPreferences selects the channels a notification fans out to.
type NotificationPreferences struct {
	Browser bool `json:"browser"`
	Email   bool `json:"email"`
	Webhook bool `json:"webhook"`
	Sound   bool `json:"sound"`
	Desktop bool `json:"desktop"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Browser: true, Email: false, Webhook: false, Sound: true, Desktop: true}
}
