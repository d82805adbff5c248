package service

import "time"

// Export for testing
var (
	BuildSeries     = buildSeries
	HourlyBuckets   = hourlyBuckets
	BounceRate      = bounceRate
	Percent         = percent
	RenderReport    = renderReport
	CSVField        = csvField
	SubmissionData  = submissionTemplateData
	PasswordContent = passwordResetContent
)

const (
	KeyAuthJWTSecret           = keyAuthJWTSecret
	KeyNotificationPreferences = keyNotificationPreferences
	VerificationTTL            = verificationTTL
	PasswordResetTTL           = passwordResetTTL
)

// SetAuthClock replaces the clock of an auth service built by NewAuthService.
func SetAuthClock(s AuthService, now func() time.Time) {
	if as, ok := s.(*authService); ok {
		as.now = now
	}
}

func SetSubmissionAdminClock(s SubmissionAdminService, now func() time.Time) {
	if ss, ok := s.(*submissionAdminService); ok {
		ss.now = now
	}
}

func SetAnalyticsClock(s AnalyticsService, now func() time.Time) {
	if as, ok := s.(*analyticsService); ok {
		as.now = now
	}
}

func SetVerificationClock(s VerificationService, now func() time.Time) {
	if vs, ok := s.(*verificationService); ok {
		vs.now = now
	}
}

func SetUserClock(s UserService, now func() time.Time) {
	if us, ok := s.(*userService); ok {
		us.now = now
	}
}

func SetHousekeepingClock(s HousekeepingService, now func() time.Time) {
	if hs, ok := s.(*housekeepingService); ok {
		hs.now = now
	}
}
