//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collector/internal/autoresponder"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
)

// RuleInput is the editable part of an auto-responder rule.
type RuleInput struct {
	Name       string
	TemplateID string
	Condition  autoresponder.Condition
	Priority   int
	Enabled    bool
}

type AutoResponderService interface {
	ListRules(ctx context.Context) ([]autoresponder.Rule, error)
	CreateRule(ctx context.Context, input RuleInput) (*autoresponder.Rule, error)
	UpdateRule(ctx context.Context, id int64, input RuleInput) (*autoresponder.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
	Responses(ctx context.Context, limit int) ([]model.AutoResponseLog, error)
	// Process queues at most one auto-response for submission and returns the
	// rule that fired, or nil.
	Process(ctx context.Context, submission model.Submission) (*autoresponder.Rule, error)
}

type autoResponderService struct {
	rules     repository.RuleRepository
	templates TemplateService
	mail      MailService
	location  *time.Location
}

func NewAutoResponderService(rules repository.RuleRepository, templates TemplateService, mail MailService, location *time.Location) AutoResponderService {
	if location == nil {
		location = time.UTC
	}
	return &autoResponderService{rules: rules, templates: templates, mail: mail, location: location}
}

func (s *autoResponderService) ListRules(ctx context.Context) ([]autoresponder.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (s *autoResponderService) validate(ctx context.Context, input RuleInput) error {
	var problems []string
	if strings.TrimSpace(input.Name) == "" {
		problems = append(problems, "Rule name is required")
	}
	if strings.TrimSpace(input.TemplateID) == "" {
		problems = append(problems, "Template is required")
	} else if _, err := s.templates.Get(ctx, input.TemplateID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		problems = append(problems, "Template does not exist")
	}
	if err := autoresponder.Validate(input.Condition); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (s *autoResponderService) CreateRule(ctx context.Context, input RuleInput) (*autoresponder.Rule, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	rule, err := s.rules.Create(ctx, autoresponder.Rule{
		Name:       input.Name,
		TemplateID: input.TemplateID,
		Condition:  input.Condition,
		Priority:   input.Priority,
		Enabled:    input.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	logger.Info("auto-responder rule created", "module", "service", "action", "create", "resource", "rule", "result", "ok",
		"rule_id", rule.ID, "condition", rule.Condition.Kind())
	return rule, nil
}

func (s *autoResponderService) UpdateRule(ctx context.Context, id int64, input RuleInput) (*autoresponder.Rule, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	existing, err := s.rules.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}
	existing.Name = input.Name
	existing.TemplateID = input.TemplateID
	existing.Condition = input.Condition
	existing.Priority = input.Priority
	existing.Enabled = input.Enabled
	if err := s.rules.Update(ctx, *existing); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return existing, nil
}

func (s *autoResponderService) DeleteRule(ctx context.Context, id int64) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

func (s *autoResponderService) Responses(ctx context.Context, limit int) ([]model.AutoResponseLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.rules.ListResponses(ctx, limit)
}

func (s *autoResponderService) Process(ctx context.Context, submission model.Submission) (*autoresponder.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	at := submission.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	rule := autoresponder.Select(rules, autoresponder.Input{
		Email:   submission.Email,
		Message: submission.Message,
		At:      at.In(s.location),
	})
	if rule == nil {
		return nil, nil
	}

	ruleID := rule.ID
	_, err = s.mail.Queue(ctx, MailRequest{
		To:         submission.Email,
		TemplateID: rule.TemplateID,
		Data:       submissionTemplateData(submission),
		Kind:       model.EmailAutoResponse,
		RuleID:     &ruleID,
	})
	if err != nil {
		return nil, fmt.Errorf("queue auto-response: %w", err)
	}
	if err := s.rules.LogResponse(ctx, model.AutoResponseLog{RuleID: rule.ID, Email: submission.Email, SentAt: time.Now()}); err != nil {
		return nil, fmt.Errorf("log auto-response: %w", err)
	}
	logger.Info("auto-response queued", "module", "service", "action", "process", "resource", "rule", "result", "ok",
		"rule_id", rule.ID, "email", submission.Email)
	return rule, nil
}

// submissionTemplateData maps a submission onto the template variables.
func submissionTemplateData(s model.Submission) map[string]string {
	name := s.Email
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	return map[string]string{
		"user_name":    name,
		"user_email":   s.Email,
		"user_message": s.Message,
	}
}
