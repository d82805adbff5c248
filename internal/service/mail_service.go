//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"collector/internal/mailer"
	"collector/internal/metrics"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
	"collector/pkg/sanitizer"
)

const (
	MaxDeliveryAttempts  = 5
	dispatchBatchSize    = 50
	dispatchConcurrency  = 4
	defaultOutboxListing = 100
)

// MailRequest asks for template id rendered with data to be queued for To.
type MailRequest struct {
	To         string
	TemplateID string
	Data       map[string]string
	Kind       model.EmailKind
	RuleID     *int64
}

// DispatchResult summarizes one outbox drain.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Retry  int `json:"retry"`
}

type MailService interface {
	Queue(ctx context.Context, req MailRequest) (*model.OutboxEmail, error)
	QueueRaw(ctx context.Context, email model.OutboxEmail) (*model.OutboxEmail, error)
	Dispatch(ctx context.Context) (DispatchResult, error)
	Outbox(ctx context.Context, status model.EmailStatus, limit int) ([]model.OutboxEmail, error)
	Counts(ctx context.Context) (map[model.EmailStatus]int, error)
}

type mailService struct {
	outbox    repository.OutboxRepository
	templates TemplateService
	sender    mailer.Sender
	metrics   *metrics.Metrics

	running atomic.Bool
}

func NewMailService(outbox repository.OutboxRepository, templates TemplateService, sender mailer.Sender, m *metrics.Metrics) MailService {
	if sender == nil {
		sender = mailer.LogSender{}
	}
	return &mailService{outbox: outbox, templates: templates, sender: sender, metrics: m}
}

// Queue renders the template and stores the result in the outbox.
func (s *mailService) Queue(ctx context.Context, req MailRequest) (*model.OutboxEmail, error) {
	rendered, err := s.templates.Render(ctx, req.TemplateID, req.Data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.TemplateID, err)
	}
	return s.QueueRaw(ctx, model.OutboxEmail{
		To:      req.To,
		Subject: rendered.Subject,
		Content: rendered.Content,
		Kind:    req.Kind,
		RuleID:  req.RuleID,
	})
}

func (s *mailService) QueueRaw(ctx context.Context, email model.OutboxEmail) (*model.OutboxEmail, error) {
	queued, err := s.outbox.Enqueue(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("enqueue email: %w", err)
	}
	logger.Debug("email queued", "module", "service", "action", "enqueue", "resource", "email", "result", "ok",
		"message_id", queued.MessageID, "kind", string(queued.Kind))
	return queued, nil
}

// Dispatch sends one batch of pending emails with bounded concurrency. A
// second call while a drain is running returns immediately.
func (s *mailService) Dispatch(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	if !s.running.CompareAndSwap(false, true) {
		return result, nil
	}
	defer s.running.Store(false)

	pending, err := s.outbox.ListPending(ctx, dispatchBatchSize)
	if err != nil {
		return result, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return result, nil
	}

	sem := semaphore.NewWeighted(dispatchConcurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, email := range pending {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(email model.OutboxEmail) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := s.deliver(ctx, email)
			mu.Lock()
			switch outcome {
			case model.EmailSent:
				result.Sent++
			case model.EmailFailed:
				result.Failed++
			default:
				result.Retry++
			}
			mu.Unlock()
		}(email)
	}
	wg.Wait()

	logger.Info("outbox dispatched", "module", "service", "action", "dispatch", "resource", "email", "result", "ok",
		"sent", result.Sent, "failed", result.Failed, "retry", result.Retry)
	return result, ctx.Err()
}

func (s *mailService) deliver(ctx context.Context, email model.OutboxEmail) model.EmailStatus {
	err := s.sender.Send(ctx, mailer.Message{
		MessageID: email.MessageID,
		To:        email.To,
		Subject:   email.Subject,
		HTML:      email.Content,
		Text:      sanitizer.StripTags(email.Content),
	})
	if err == nil {
		if markErr := s.outbox.MarkSent(ctx, email.ID, time.Now()); markErr != nil {
			logger.Error("mark email sent", "module", "service", "action", "dispatch", "resource", "email", "result", "failed",
				"message_id", email.MessageID, "error", markErr)
		}
		s.metrics.Delivery(string(email.Kind), "sent")
		return model.EmailSent
	}

	final := mailer.IsPermanent(err) || email.Attempts+1 >= MaxDeliveryAttempts
	if markErr := s.outbox.MarkAttemptFailed(ctx, email.ID, err.Error(), final); markErr != nil {
		logger.Error("mark email failed", "module", "service", "action", "dispatch", "resource", "email", "result", "failed",
			"message_id", email.MessageID, "error", markErr)
	}
	logger.Warn("email delivery failed", "module", "service", "action", "dispatch", "resource", "email", "result", "failed",
		"message_id", email.MessageID, "attempt", email.Attempts+1, "final", final, "error", err)
	if final {
		s.metrics.Delivery(string(email.Kind), "failed")
		return model.EmailFailed
	}
	s.metrics.Delivery(string(email.Kind), "retry")
	return model.EmailPending
}

func (s *mailService) Outbox(ctx context.Context, status model.EmailStatus, limit int) ([]model.OutboxEmail, error) {
	switch status {
	case "", model.EmailPending, model.EmailSent, model.EmailFailed:
	default:
		return nil, ErrInvalid
	}
	if limit <= 0 || limit > 500 {
		limit = defaultOutboxListing
	}
	return s.outbox.List(ctx, status, limit)
}

func (s *mailService) Counts(ctx context.Context) (map[model.EmailStatus]int, error) {
	return s.outbox.CountByStatus(ctx)
}
