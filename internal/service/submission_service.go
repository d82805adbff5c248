//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"strings"
	"time"

	"collector/internal/gate"
	"collector/internal/iplookup"
	"collector/internal/metrics"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/internal/urlutil"
	"collector/pkg/logger"
)

// SubmitRequest is one POST of the public form. Website is the honeypot
// field and must stay empty.
type SubmitRequest struct {
	Email           string
	Message         string
	Website         string
	SessionKey      string
	UserAgent       string
	IPAddress       string
	Locale          string
	Referrer        string
	ClientTimestamp time.Time
}

// SubmitResult carries the gate outcome. Honeypot is set when the request
// was silently discarded.
type SubmitResult struct {
	Outcome  gate.Outcome
	Honeypot bool
}

type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	Validate(email, message string) gate.FormState
}

// SubmissionDeps groups the collaborators run after a submission is admitted.
// Everything except Gate is optional.
type SubmissionDeps struct {
	Gate             *gate.Gate
	Resolver         iplookup.Resolver
	AutoResponder    AutoResponderService
	Mail             MailService
	Notifications    NotificationService
	Analytics        repository.AnalyticsRepository
	Metrics          *metrics.Metrics
	SendConfirmation bool
}

type submissionService struct {
	deps SubmissionDeps
}

func NewSubmissionService(deps SubmissionDeps) SubmissionService {
	return &submissionService{deps: deps}
}

func (s *submissionService) Validate(email, message string) gate.FormState {
	return gate.EvaluateForm(email, message)
}

func (s *submissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.Website) != "" {
		logger.Info("honeypot submission discarded", "module", "service", "action", "submit", "resource", "submission", "result", "discarded",
			"session", req.SessionKey)
		s.deps.Metrics.Submission("honeypot")
		return &SubmitResult{Honeypot: true}, nil
	}

	ip := strings.TrimSpace(req.IPAddress)
	if ip == "" {
		ip = iplookup.Unknown
		if s.deps.Resolver != nil {
			ip = s.deps.Resolver.Lookup(ctx)
		}
	}

	outcome, err := s.deps.Gate.Submit(ctx, gate.SubmissionAttempt{
		Email:           req.Email,
		Message:         req.Message,
		ClientTimestamp: req.ClientTimestamp,
		SessionKey:      req.SessionKey,
		UserAgent:       req.UserAgent,
		IPAddress:       ip,
		Locale:          req.Locale,
	})
	if err != nil {
		s.deps.Metrics.Submission("error")
		return nil, err
	}

	if !outcome.Admitted {
		s.deps.Metrics.Submission("rejected")
		codes := make([]string, 0, len(outcome.Reasons))
		for _, r := range outcome.Reasons {
			s.deps.Metrics.Rejection(string(r.Code))
			codes = append(codes, string(r.Code))
		}
		logger.Info("submission rejected", "module", "service", "action", "submit", "resource", "submission", "result", "rejected",
			"session", req.SessionKey, "reasons", strings.Join(codes, ","))
		return &SubmitResult{Outcome: outcome}, nil
	}

	s.deps.Metrics.Submission("admitted")
	logger.Info("submission stored", "module", "service", "action", "submit", "resource", "submission", "result", "ok",
		"submission_id", outcome.Submission.ID, "session", req.SessionKey)

	s.followUp(context.WithoutCancel(ctx), req, *outcome.Submission)
	return &SubmitResult{Outcome: outcome}, nil
}

// followUp runs the post-submission side effects. None of them can undo an
// admitted submission, so failures are only logged.
func (s *submissionService) followUp(ctx context.Context, req SubmitRequest, sub model.Submission) {
	if s.deps.Analytics != nil {
		if err := s.deps.Analytics.Create(ctx, model.AnalyticsEvent{
			Action:    model.ActionFormSubmit,
			SessionID: req.SessionKey,
			UserAgent: req.UserAgent,
			Referrer:  urlutil.CleanReferrer(req.Referrer),
			Language:  req.Locale,
			CreatedAt: sub.CreatedAt,
		}); err != nil {
			s.warn("track", "analytics", err)
		}
	}

	if s.deps.AutoResponder != nil {
		if _, err := s.deps.AutoResponder.Process(ctx, sub); err != nil {
			s.warn("auto_respond", "rule", err)
		}
	}

	if s.deps.SendConfirmation && s.deps.Mail != nil {
		if _, err := s.deps.Mail.Queue(ctx, MailRequest{
			To:         sub.Email,
			TemplateID: TemplateConfirmation,
			Data:       submissionTemplateData(sub),
			Kind:       model.EmailConfirmation,
		}); err != nil {
			s.warn("confirm", "email", err)
		}
	}

	if s.deps.Notifications != nil {
		if _, err := s.deps.Notifications.Notify(ctx, model.Notification{
			Kind:  model.NotificationNewSubmission,
			Title: "New Email Submission!",
			Body:  "New message from " + sub.Email,
			Payload: map[string]string{
				"emailId": formatID(sub.ID),
				"email":   sub.Email,
				"message": sub.Message,
			},
		}); err != nil {
			s.warn("notify", "notification", err)
		}
	}
}

func (s *submissionService) warn(action, resource string, err error) {
	logger.Warn("submission follow-up failed", "module", "service", "action", action, "resource", resource, "result", "failed", "error", err)
}
