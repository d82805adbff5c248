package model

import "time"

type AnalyticsAction string

const (
	ActionPageView   AnalyticsAction = "page_view"
	ActionFormStart  AnalyticsAction = "form_start"
	ActionFormSubmit AnalyticsAction = "form_submit"
)

func (a AnalyticsAction) Valid() bool {
	switch a {
	case ActionPageView, ActionFormStart, ActionFormSubmit:
		return true
	}
	return false
}

type AnalyticsEvent struct {
	ID        int64
	Action    AnalyticsAction
	SessionID string
	UserAgent string
	Referrer  string
	Language  string
	CreatedAt time.Time
}
