package model

import "time"

type Verification struct {
	ID         int64
	Email      string
	Token      string
	Verified   bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}
