package model

import "time"

// Submission is a stored entry of the emails collection.
type Submission struct {
	ID        int64
	Email     string
	Message   string
	UserAgent string
	IPAddress string
	Locale    string
	CreatedAt time.Time
}

// SubmissionRange narrows a listing to a calendar window.
type SubmissionRange string

const (
	RangeAll   SubmissionRange = "all"
	RangeToday SubmissionRange = "today"
	RangeWeek  SubmissionRange = "week"
	RangeMonth SubmissionRange = "month"
)

// SubmissionFilter selects submissions for admin listing and export.
// Zero Since means no lower bound; empty Search matches everything.
type SubmissionFilter struct {
	Since  time.Time
	Search string
	Limit  int
	Offset int
}
