package model

import "time"

type Template struct {
	ID        string
	Name      string
	Subject   string
	Content   string
	Variables []string
	Builtin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AutoResponseLog records that a rule answered a submission.
type AutoResponseLog struct {
	ID     int64
	RuleID int64
	Email  string
	SentAt time.Time
}
