package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/internal/repository/testutil"
)

// 2026-03-18 是星期三
var analyticsNow = time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0)"

func newAnalyticsFixture(t *testing.T) AnalyticsService {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	at := func(day, hour, minute int) time.Time { return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC) }
	for _, s := range []model.Submission{
		{Email: "a@gmail.com", Message: "m", UserAgent: "Mozilla/5.0 (iPhone) Mobile Safari", CreatedAt: at(18, 9, 10)},
		{Email: "b@gmail.com", Message: "m", UserAgent: desktopUA, CreatedAt: at(18, 9, 40)},
		{Email: "c@corp.com", Message: "m", UserAgent: "SomeTablet Tablet", CreatedAt: at(18, 14, 0)},
		{Email: "d@corp.com", Message: "m", UserAgent: desktopUA, CreatedAt: at(17, 10, 0)},
		{Email: "e@gmail.com", Message: "m", CreatedAt: at(12, 23, 30)},
		{Email: "f@yahoo.com", Message: "m", UserAgent: desktopUA, CreatedAt: at(1, 8, 0)},
	} {
		testutil.SeedSubmission(t, db, s)
	}

	testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s1", UserAgent: desktopUA, CreatedAt: at(18, 9, 0)})
	for i := 2; i <= 7; i++ {
		testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: fmt.Sprintf("s%d", i), UserAgent: "Bot/1.0", CreatedAt: at(18, 9, 0)})
	}
	testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s8", UserAgent: "Other", CreatedAt: at(18, 9, 0)})
	testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s8", UserAgent: "Other", CreatedAt: at(18, 9, 5)})
	for i := 0; i < 3; i++ {
		testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionFormStart, SessionID: "s1", CreatedAt: at(18, 9, 1)})
	}

	verifications := repository.NewVerificationRepository(db)
	for i, email := range []string{"a@gmail.com", "a@gmail.com", "b@gmail.com", "c@corp.com"} {
		v, err := verifications.Create(ctx, model.Verification{Email: email, Token: fmt.Sprintf("tok-%d", i), CreatedAt: analyticsNow, ExpiresAt: analyticsNow.Add(time.Hour)})
		require.NoError(t, err)
		if email != "c@corp.com" {
			require.NoError(t, verifications.MarkVerified(ctx, v.ID, analyticsNow))
		}
	}

	svc := NewAnalyticsService(repository.NewAnalyticsRepository(db), repository.NewSubmissionRepository(db), verifications, time.UTC)
	SetAnalyticsClock(svc, func() time.Time { return analyticsNow })
	return svc
}

func TestAnalyticsService_Stats(t *testing.T) {
	svc := newAnalyticsFixture(t)
	ctx := context.Background()

	public, err := svc.PublicStats(ctx)
	require.NoError(t, err)
	require.Equal(t, PublicStats{TotalEmails: 6, TodayEmails: 3, UniqueVisitors: 8, ConversionRate: 75}, public)

	dashboard, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, DashboardStats{TotalEmails: 6, TodayEmails: 3, VerifiedEmails: 2, ConversionRate: 33}, dashboard)
}

func TestAnalyticsService_Series(t *testing.T) {
	svc := newAnalyticsFixture(t)

	series, err := svc.Series(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []SeriesPoint{
		{Date: "2026-03-12", Label: "Thu", Count: 1},
		{Date: "2026-03-13", Label: "Fri", Count: 0},
		{Date: "2026-03-14", Label: "Sat", Count: 0},
		{Date: "2026-03-15", Label: "Sun", Count: 0},
		{Date: "2026-03-16", Label: "Mon", Count: 0},
		{Date: "2026-03-17", Label: "Tue", Count: 1},
		{Date: "2026-03-18", Label: "Wed", Count: 3},
	}, series)

	series, err = svc.Series(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, 1, series[0].Count)
	require.Equal(t, 3, series[1].Count)
}

func TestAnalyticsService_Distributions(t *testing.T) {
	svc := newAnalyticsFixture(t)
	ctx := context.Background()

	hourly, err := svc.Hourly(ctx)
	require.NoError(t, err)
	require.Len(t, hourly, 24)
	require.Equal(t, 2, hourly[9])
	require.Equal(t, 1, hourly[8])
	require.Equal(t, 1, hourly[10])
	require.Equal(t, 1, hourly[14])
	require.Equal(t, 1, hourly[23])

	devices, err := svc.Devices(ctx)
	require.NoError(t, err)
	require.Equal(t, DeviceCounts{Desktop: 4, Mobile: 1, Tablet: 1}, devices)

	domains, err := svc.Domains(ctx)
	require.NoError(t, err)
	require.Equal(t, []DomainStat{
		{Domain: "gmail.com", Count: 3},
		{Domain: "corp.com", Count: 2},
		{Domain: "yahoo.com", Count: 1},
	}, domains)
}

func TestAnalyticsService_FunnelAndMetrics(t *testing.T) {
	svc := newAnalyticsFixture(t)
	ctx := context.Background()

	funnel, err := svc.Funnel(ctx)
	require.NoError(t, err)
	require.Equal(t, Funnel{Visitors: 8, FormStarts: 3, Submissions: 6, Verified: 2}, funnel)

	metrics, err := svc.Metrics(ctx)
	require.NoError(t, err)
	// 9 page views, only s1 shares a user agent with a submission
	require.Equal(t, AnalyticsMetrics{TotalSubmissions: 6, TotalVisitors: 8, ConversionRate: 75, BounceRate: 89}, metrics)
}

func TestAnalyticsService_ReportAndExport(t *testing.T) {
	svc := newAnalyticsFixture(t)
	ctx := context.Background()

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	require.Contains(t, report, "# Analytics Report - 2026-03-18")
	require.Contains(t, report, "- Total Submissions: 6")
	require.Contains(t, report, "- Bounce Rate: 89%")
	require.Contains(t, report, "- mobile: 1")
	require.Contains(t, report, "- gmail.com: 3")

	bundle, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, bundle.Submissions, 6)
	require.Equal(t, "a@gmail.com", bundle.Submissions[2].Email, "newest first")
	require.Equal(t, 6, bundle.Funnel.Submissions)
	require.Len(t, bundle.Series, 7)
	require.Len(t, bundle.Hourly, 24)
	require.True(t, analyticsNow.Equal(bundle.GeneratedAt))
}

func TestAnalyticsService_Track(t *testing.T) {
	db := testutil.NewTestDB(t)
	events := repository.NewAnalyticsRepository(db)
	svc := NewAnalyticsService(events, repository.NewSubmissionRepository(db), repository.NewVerificationRepository(db), nil)
	ctx := context.Background()

	require.NoError(t, svc.Track(ctx, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s1", UserAgent: "UA", Referrer: "https://News.example.org/p?token=secret#x"}))
	require.NoError(t, svc.Track(ctx, model.AnalyticsEvent{Action: model.ActionFormStart, SessionID: "s1"}))
	require.ErrorIs(t, svc.Track(ctx, model.AnalyticsEvent{Action: model.ActionFormSubmit, SessionID: "s1"}), ErrInvalid)
	require.ErrorIs(t, svc.Track(ctx, model.AnalyticsEvent{Action: "click", SessionID: "s1"}), ErrInvalid)
	require.ErrorIs(t, svc.Track(ctx, model.AnalyticsEvent{Action: model.ActionPageView}), ErrInvalid)

	n, err := events.CountEvents(ctx, model.ActionPageView)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var referrer string
	require.NoError(t, db.QueryRow(`SELECT referrer FROM analytics WHERE action = ?`, string(model.ActionPageView)).Scan(&referrer))
	require.Equal(t, "https://news.example.org/p", referrer)

	stats, err := svc.PublicStats(ctx)
	require.NoError(t, err)
	require.Equal(t, PublicStats{UniqueVisitors: 1}, stats, "no submissions means zero conversion")
}

func TestPercentAndBounceRate(t *testing.T) {
	require.Equal(t, 0, percent(5, 0))
	require.Equal(t, 33, percent(1, 3))
	require.Equal(t, 67, percent(2, 3))
	require.Equal(t, 150, percent(3, 2))

	require.Equal(t, 0, bounceRate(nil, []string{"a"}))
	views := []model.AnalyticsEvent{{UserAgent: "a"}, {UserAgent: "b"}, {UserAgent: "b"}, {UserAgent: "c"}}
	require.Equal(t, 75, bounceRate(views, []string{"a"}))
	require.Equal(t, 100, bounceRate(views, nil))
}

func TestDeviceClass(t *testing.T) {
	require.Equal(t, "mobile", DeviceClass("Mozilla/5.0 (iPad) Mobile Tablet"))
	require.Equal(t, "tablet", DeviceClass("Tablet PC"))
	require.Equal(t, "desktop", DeviceClass("Mozilla/5.0 (X11; Linux x86_64)"))
	require.Equal(t, "desktop", DeviceClass(""))
}
