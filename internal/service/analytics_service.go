//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/internal/urlutil"
)

const (
	defaultSeriesDays = 7
	maxSeriesDays     = 90
	topDomainLimit    = 10
	reportDomainLimit = 5
)

type PublicStats struct {
	TotalEmails    int `json:"totalEmails"`
	TodayEmails    int `json:"todayEmails"`
	UniqueVisitors int `json:"uniqueVisitors"`
	ConversionRate int `json:"conversionRate"`
}

type DashboardStats struct {
	TotalEmails    int `json:"totalEmails"`
	TodayEmails    int `json:"todayEmails"`
	VerifiedEmails int `json:"verifiedEmails"`
	ConversionRate int `json:"conversionRate"`
}

type SeriesPoint struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DeviceCounts struct {
	Desktop int `json:"desktop"`
	Mobile  int `json:"mobile"`
	Tablet  int `json:"tablet"`
}

type DomainStat struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

type Funnel struct {
	Visitors    int `json:"visitors"`
	FormStarts  int `json:"formStarts"`
	Submissions int `json:"submissions"`
	Verified    int `json:"verified"`
}

type AnalyticsMetrics struct {
	TotalSubmissions int `json:"totalSubmissions"`
	TotalVisitors    int `json:"totalVisitors"`
	ConversionRate   int `json:"conversionRate"`
	BounceRate       int `json:"bounceRate"`
}

// AnalyticsBundle is the full analytics export.
type AnalyticsBundle struct {
	Submissions []submissionExport `json:"submissions"`
	Metrics     AnalyticsMetrics   `json:"metrics"`
	Funnel      Funnel             `json:"funnel"`
	Devices     DeviceCounts       `json:"devices"`
	Domains     []DomainStat       `json:"domains"`
	Series      []SeriesPoint      `json:"series"`
	Hourly      []int              `json:"hourly"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

type AnalyticsService interface {
	Track(ctx context.Context, event model.AnalyticsEvent) error
	PublicStats(ctx context.Context) (PublicStats, error)
	DashboardStats(ctx context.Context) (DashboardStats, error)
	Series(ctx context.Context, days int) ([]SeriesPoint, error)
	Hourly(ctx context.Context) ([]int, error)
	Devices(ctx context.Context) (DeviceCounts, error)
	Domains(ctx context.Context) ([]DomainStat, error)
	Funnel(ctx context.Context) (Funnel, error)
	Metrics(ctx context.Context) (AnalyticsMetrics, error)
	Report(ctx context.Context) (string, error)
	Export(ctx context.Context) (*AnalyticsBundle, error)
}

type analyticsService struct {
	events        repository.AnalyticsRepository
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	location      *time.Location
	now           func() time.Time
}

func NewAnalyticsService(
	events repository.AnalyticsRepository,
	submissions repository.SubmissionRepository,
	verifications repository.VerificationRepository,
	location *time.Location,
) AnalyticsService {
	if location == nil {
		location = time.UTC
	}
	return &analyticsService{
		events:        events,
		submissions:   submissions,
		verifications: verifications,
		location:      location,
		now:           time.Now,
	}
}

// Track stores a client-reported event. form_submit is recorded by the
// submission flow and is refused here.
func (s *analyticsService) Track(ctx context.Context, event model.AnalyticsEvent) error {
	if event.Action != model.ActionPageView && event.Action != model.ActionFormStart {
		return &ValidationError{Problems: []string{"unsupported action " + string(event.Action)}}
	}
	if strings.TrimSpace(event.SessionID) == "" {
		return &ValidationError{Problems: []string{"session id is required"}}
	}
	event.Referrer = urlutil.CleanReferrer(event.Referrer)
	event.CreatedAt = s.now().UTC()
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("track event: %w", err)
	}
	return nil
}

func (s *analyticsService) startOfToday() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

func (s *analyticsService) PublicStats(ctx context.Context) (PublicStats, error) {
	var out PublicStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalEmails, err = s.submissions.Count(gctx, model.SubmissionFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.TodayEmails, err = s.submissions.CountSince(gctx, s.startOfToday())
		return err
	})
	g.Go(func() (err error) {
		out.UniqueVisitors, err = s.events.CountSessions(gctx, model.ActionPageView)
		return err
	})
	if err := g.Wait(); err != nil {
		return PublicStats{}, fmt.Errorf("public stats: %w", err)
	}
	out.ConversionRate = percent(out.TotalEmails, out.UniqueVisitors)
	return out, nil
}

func (s *analyticsService) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalEmails, err = s.submissions.Count(gctx, model.SubmissionFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.TodayEmails, err = s.submissions.CountSince(gctx, s.startOfToday())
		return err
	})
	g.Go(func() (err error) {
		out.VerifiedEmails, err = s.verifications.CountVerifiedEmails(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	out.ConversionRate = percent(out.VerifiedEmails, out.TotalEmails)
	return out, nil
}

// Series counts submissions per local calendar day, oldest first, ending today.
func (s *analyticsService) Series(ctx context.Context, days int) ([]SeriesPoint, error) {
	if days <= 0 {
		days = defaultSeriesDays
	}
	if days > maxSeriesDays {
		days = maxSeriesDays
	}
	today := s.startOfToday()
	start := today.AddDate(0, 0, -(days - 1))

	subs, err := s.submissions.ListSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return buildSeries(subs, start, days, s.location), nil
}

func buildSeries(subs []model.Submission, start time.Time, days int, loc *time.Location) []SeriesPoint {
	points := make([]SeriesPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		points[i] = SeriesPoint{Date: key, Label: day.Weekday().String()[:3]}
		index[key] = i
	}
	for _, sub := range subs {
		if i, ok := index[sub.CreatedAt.In(loc).Format("2006-01-02")]; ok {
			points[i].Count++
		}
	}
	return points
}

func (s *analyticsService) allSubmissions(ctx context.Context) ([]model.Submission, error) {
	subs, err := s.submissions.List(ctx, model.SubmissionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (s *analyticsService) Hourly(ctx context.Context) ([]int, error) {
	subs, err := s.allSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	return hourlyBuckets(subs, s.location), nil
}

func hourlyBuckets(subs []model.Submission, loc *time.Location) []int {
	buckets := make([]int, 24)
	for _, sub := range subs {
		buckets[sub.CreatedAt.In(loc).Hour()]++
	}
	return buckets
}

func (s *analyticsService) Devices(ctx context.Context) (DeviceCounts, error) {
	subs, err := s.allSubmissions(ctx)
	if err != nil {
		return DeviceCounts{}, err
	}
	return deviceCounts(subs), nil
}

// DeviceClass buckets a user agent: "Mobile" wins over "Tablet", anything
// else is a desktop.
func DeviceClass(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Mobile"):
		return "mobile"
	case strings.Contains(userAgent, "Tablet"):
		return "tablet"
	default:
		return "desktop"
	}
}

func deviceCounts(subs []model.Submission) DeviceCounts {
	var out DeviceCounts
	for _, sub := range subs {
		switch DeviceClass(sub.UserAgent) {
		case "mobile":
			out.Mobile++
		case "tablet":
			out.Tablet++
		default:
			out.Desktop++
		}
	}
	return out
}

func (s *analyticsService) Domains(ctx context.Context) ([]DomainStat, error) {
	return s.topDomains(ctx, topDomainLimit)
}

func (s *analyticsService) topDomains(ctx context.Context, limit int) ([]DomainStat, error) {
	rows, err := s.submissions.TopDomains(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	out := make([]DomainStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, DomainStat{Domain: r.Domain, Count: r.Count})
	}
	return out, nil
}

func (s *analyticsService) Funnel(ctx context.Context) (Funnel, error) {
	var out Funnel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Visitors, err = s.events.CountSessions(gctx, model.ActionPageView)
		return err
	})
	g.Go(func() (err error) {
		out.FormStarts, err = s.events.CountEvents(gctx, model.ActionFormStart)
		return err
	})
	g.Go(func() (err error) {
		out.Submissions, err = s.submissions.Count(gctx, model.SubmissionFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.Verified, err = s.verifications.CountVerifiedEmails(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Funnel{}, fmt.Errorf("funnel: %w", err)
	}
	return out, nil
}

func (s *analyticsService) Metrics(ctx context.Context) (AnalyticsMetrics, error) {
	var (
		out       AnalyticsMetrics
		pageViews []model.AnalyticsEvent
		agents    []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalSubmissions, err = s.submissions.Count(gctx, model.SubmissionFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.TotalVisitors, err = s.events.CountSessions(gctx, model.ActionPageView)
		return err
	})
	g.Go(func() (err error) {
		pageViews, err = s.events.ListEvents(gctx, model.ActionPageView)
		return err
	})
	g.Go(func() (err error) {
		agents, err = s.submissions.DistinctUserAgents(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return AnalyticsMetrics{}, fmt.Errorf("metrics: %w", err)
	}
	out.ConversionRate = percent(out.TotalSubmissions, out.TotalVisitors)
	out.BounceRate = bounceRate(pageViews, agents)
	return out, nil
}

// bounceRate is the share of page views whose user agent never submitted.
func bounceRate(pageViews []model.AnalyticsEvent, submittedAgents []string) int {
	if len(pageViews) == 0 {
		return 0
	}
	submitted := make(map[string]struct{}, len(submittedAgents))
	for _, ua := range submittedAgents {
		submitted[ua] = struct{}{}
	}
	bounced := 0
	for _, pv := range pageViews {
		if _, ok := submitted[pv.UserAgent]; !ok {
			bounced++
		}
	}
	return percent(bounced, len(pageViews))
}

func (s *analyticsService) Report(ctx context.Context) (string, error) {
	m, err := s.Metrics(ctx)
	if err != nil {
		return "", err
	}
	devices, err := s.Devices(ctx)
	if err != nil {
		return "", err
	}
	domains, err := s.topDomains(ctx, reportDomainLimit)
	if err != nil {
		return "", err
	}
	return renderReport(s.now().In(s.location), m, devices, domains), nil
}

func renderReport(at time.Time, m AnalyticsMetrics, devices DeviceCounts, domains []DomainStat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analytics Report - %s\n\n", at.Format("2006-01-02"))
	b.WriteString("## Key Metrics\n")
	fmt.Fprintf(&b, "- Total Submissions: %d\n", m.TotalSubmissions)
	fmt.Fprintf(&b, "- Total Visitors: %d\n", m.TotalVisitors)
	fmt.Fprintf(&b, "- Conversion Rate: %d%%\n", m.ConversionRate)
	fmt.Fprintf(&b, "- Bounce Rate: %d%%\n\n", m.BounceRate)
	b.WriteString("## Device Distribution\n")
	fmt.Fprintf(&b, "- desktop: %d\n- mobile: %d\n- tablet: %d\n\n", devices.Desktop, devices.Mobile, devices.Tablet)
	b.WriteString("## Top Email Domains\n")
	if len(domains) == 0 {
		b.WriteString("- none\n")
	}
	for _, d := range domains {
		fmt.Fprintf(&b, "- %s: %d\n", d.Domain, d.Count)
	}
	b.WriteString("\n## Recommendations\n")
	b.WriteString("- Monitor conversion rate trends\n")
	b.WriteString("- Optimize for mobile users\n")
	return b.String()
}

func (s *analyticsService) Export(ctx context.Context) (*AnalyticsBundle, error) {
	subs, err := s.allSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	funnel, err := s.Funnel(ctx)
	if err != nil {
		return nil, err
	}
	domains, err := s.topDomains(ctx, topDomainLimit)
	if err != nil {
		return nil, err
	}
	series, err := s.Series(ctx, defaultSeriesDays)
	if err != nil {
		return nil, err
	}

	exported := make([]submissionExport, 0, len(subs))
	for _, sub := range subs {
		exported = append(exported, submissionExport{
			ID:        formatID(sub.ID),
			Email:     sub.Email,
			Message:   sub.Message,
			IPAddress: sub.IPAddress,
			UserAgent: sub.UserAgent,
			Locale:    sub.Locale,
			CreatedAt: sub.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &AnalyticsBundle{
		Submissions: exported,
		Metrics:     m,
		Funnel:      funnel,
		Devices:     deviceCounts(subs),
		Domains:     domains,
		Series:      series,
		Hourly:      hourlyBuckets(subs, s.location),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// percent returns round(part / whole × 100), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
