//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
	"collector/pkg/sanitizer"
)

const (
	TemplateWelcome      = "welcome"
	TemplateConfirmation = "confirmation"
	TemplateVerification = "verification"
	TemplateFollowup     = "followup"
)

var (
	variablePattern   = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// TemplateInput is the editable part of a template.
type TemplateInput struct {
	Name    string
	Subject string
	Content string
}

// RenderedEmail is a template with its variables substituted.
type RenderedEmail struct {
	Subject string
	Content string
}

type TemplateService interface {
	SeedBuiltins(ctx context.Context) error
	List(ctx context.Context) ([]model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
	Create(ctx context.Context, input TemplateInput) (*model.Template, error)
	Update(ctx context.Context, id string, input TemplateInput) (*model.Template, error)
	Delete(ctx context.Context, id string) error
	Validate(input TemplateInput) []string
	Render(ctx context.Context, id string, data map[string]string) (*RenderedEmail, error)
	Preview(ctx context.Context, id string, sample map[string]string) (*RenderedEmail, error)
}

type templateService struct {
	repo     repository.TemplateRepository
	siteName string
}

func NewTemplateService(repo repository.TemplateRepository, siteName string) TemplateService {
	if siteName == "" {
		siteName = "Email Collector"
	}
	return &templateService{repo: repo, siteName: siteName}
}

// SeedBuiltins inserts the built-in templates that are missing. Edited
// built-ins are left alone.
func (s *templateService) SeedBuiltins(ctx context.Context) error {
	seeded := 0
	for _, t := range builtinTemplates() {
		_, err := s.repo.Get(ctx, t.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNoRows) {
			return fmt.Errorf("check template %s: %w", t.ID, err)
		}
		if _, err := s.repo.Upsert(ctx, t); err != nil {
			return fmt.Errorf("seed template %s: %w", t.ID, err)
		}
		seeded++
	}
	if seeded > 0 {
		logger.Info("builtin templates seeded", "module", "service", "action", "seed", "resource", "template", "result", "ok", "count", seeded)
	}
	return nil
}

func (s *templateService) List(ctx context.Context) ([]model.Template, error) {
	return s.repo.List(ctx)
}

func (s *templateService) Get(ctx context.Context, id string) (*model.Template, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *templateService) Create(ctx context.Context, input TemplateInput) (*model.Template, error) {
	input = trimInput(input)
	if problems := s.Validate(input); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	id := TemplateSlug(input.Name)
	if _, err := s.repo.Get(ctx, id); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNoRows) {
		return nil, fmt.Errorf("check template: %w", err)
	}

	content := sanitizer.SanitizeHTML(input.Content)
	t, err := s.repo.Upsert(ctx, model.Template{
		ID:        id,
		Name:      input.Name,
		Subject:   input.Subject,
		Content:   content,
		Variables: ExtractVariables(input.Subject + content),
	})
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	logger.Info("template created", "module", "service", "action", "create", "resource", "template", "result", "ok", "template_id", id)
	return t, nil
}

func (s *templateService) Update(ctx context.Context, id string, input TemplateInput) (*model.Template, error) {
	input = trimInput(input)
	if problems := s.Validate(input); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content := sanitizer.SanitizeHTML(input.Content)
	existing.Name = input.Name
	existing.Subject = input.Subject
	existing.Content = content
	existing.Variables = ExtractVariables(input.Subject + content)

	t, err := s.repo.Upsert(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

// Delete removes a custom template. Built-in templates cannot be deleted.
func (s *templateService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Builtin {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (s *templateService) Validate(input TemplateInput) []string {
	var problems []string
	if strings.TrimSpace(input.Name) == "" {
		problems = append(problems, "Template name is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		problems = append(problems, "Template subject is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		problems = append(problems, "Template content is required")
	}
	return problems
}

func (s *templateService) Render(ctx context.Context, id string, data map[string]string) (*RenderedEmail, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := map[string]string{"site_name": s.siteName}
	for k, v := range data {
		merged[k] = v
	}
	rendered := RenderTemplate(*t, merged)
	return &rendered, nil
}

// Preview renders id with sample values layered over the defaults.
func (s *templateService) Preview(ctx context.Context, id string, sample map[string]string) (*RenderedEmail, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data := map[string]string{
		"site_name":         s.siteName,
		"user_name":         "John Doe",
		"user_message":      "This is a sample message for preview purposes.",
		"verification_link": "https://example.com/verify?token=abc123",
		"feedback_link":     "https://example.com/feedback",
	}
	for k, v := range sample {
		data[k] = v
	}
	rendered := RenderTemplate(*t, data)
	return &rendered, nil
}

// RenderTemplate substitutes every declared variable. Values are HTML escaped
// in the content; missing or empty values leave the placeholder in place.
func RenderTemplate(t model.Template, data map[string]string) RenderedEmail {
	subject, content := t.Subject, t.Content
	for _, name := range t.Variables {
		value, ok := data[name]
		if !ok || value == "" {
			continue
		}
		placeholder := "{{" + name + "}}"
		subject = strings.ReplaceAll(subject, placeholder, value)
		content = strings.ReplaceAll(content, placeholder, html.EscapeString(value))
	}
	return RenderedEmail{Subject: subject, Content: content}
}

// ExtractVariables returns the distinct {{var}} names in order of appearance.
func ExtractVariables(text string) []string {
	vars := []string{}
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, name)
	}
	return vars
}

// TemplateSlug lower-cases name and replaces whitespace runs with "_".
func TemplateSlug(name string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

func trimInput(in TemplateInput) TemplateInput {
	return TemplateInput{
		Name:    strings.TrimSpace(in.Name),
		Subject: strings.TrimSpace(in.Subject),
		Content: strings.TrimSpace(in.Content),
	}
}
