package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateService_SeedBuiltins(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	list, err := templates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	welcome, err := templates.Get(ctx, TemplateWelcome)
	require.NoError(t, err)
	require.True(t, welcome.Builtin)
	require.Equal(t, []string{"site_name", "user_name", "user_message"}, welcome.Variables)

	_, err = templates.Update(ctx, TemplateWelcome, TemplateInput{Name: "Welcome Email", Subject: "Hi {{user_name}}", Content: "<p>edited</p>"})
	require.NoError(t, err)

	require.NoError(t, templates.SeedBuiltins(ctx), "seeding again should not fail")
	welcome, err = templates.Get(ctx, TemplateWelcome)
	require.NoError(t, err)
	require.Equal(t, "Hi {{user_name}}", welcome.Subject, "edited builtin must survive reseeding")

	list, err = templates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
}

func TestTemplateService_Create(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	created, err := templates.Create(ctx, TemplateInput{
		Name:    "  Spring   Promo ",
		Subject: "Hello {{user_name}}",
		Content: `<p>Thanks {{user_name}} for {{user_message}}</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	require.Equal(t, "spring_promo", created.ID)
	require.Equal(t, "Spring   Promo", created.Name)
	require.False(t, created.Builtin)
	require.NotContains(t, created.Content, "<script>")
	require.Contains(t, created.Content, "{{user_message}}")
	require.Equal(t, []string{"user_name", "user_message"}, created.Variables)

	_, err = templates.Create(ctx, TemplateInput{Name: "spring promo", Subject: "x", Content: "y"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestTemplateService_CreateWithPlaceholderLink(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	created, err := templates.Create(ctx, TemplateInput{
		Name:    "Survey",
		Subject: "Tell us more",
		Content: `<p style="color: #667eea;">Hi {{user_name}}</p><a href="{{feedback_link}}">Leave feedback</a>`,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"user_name", "feedback_link"}, created.Variables)
	require.Contains(t, created.Content, `href="{{feedback_link}}"`)
	require.Contains(t, created.Content, "color: #667eea")

	rendered, err := templates.Render(ctx, created.ID, map[string]string{
		"user_name":     "Jane",
		"feedback_link": "https://example.com/feedback?id=7",
	})
	require.NoError(t, err)
	require.Contains(t, rendered.Content, `href="https://example.com/feedback?id=7"`)
	require.Contains(t, rendered.Content, "Hi Jane")
	require.NotContains(t, rendered.Content, "{{")
}

func TestTemplateService_UpdateBuiltinIsSanitized(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	updated, err := templates.Update(ctx, TemplateWelcome, TemplateInput{
		Name:    "Welcome Email",
		Subject: "Welcome {{user_name}}",
		Content: `<p>Hello {{user_name}}</p><script>alert(1)</script><img src=x onerror=alert(2)>`,
	})
	require.NoError(t, err)
	require.True(t, updated.Builtin)
	require.NotContains(t, updated.Content, "<script")
	require.NotContains(t, updated.Content, "alert")
	require.NotContains(t, updated.Content, "onerror")
	require.Contains(t, updated.Content, "<p>Hello {{user_name}}</p>")

	stored, err := templates.Get(ctx, TemplateWelcome)
	require.NoError(t, err)
	require.Equal(t, updated.Content, stored.Content)
}

func TestTemplateService_UpdateBuiltinKeepsStylesAndLinks(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	followup, err := templates.Get(ctx, TemplateFollowup)
	require.NoError(t, err)

	updated, err := templates.Update(ctx, TemplateFollowup, TemplateInput{
		Name: followup.Name, Subject: followup.Subject, Content: followup.Content,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"site_name", "user_name", "feedback_link"}, updated.Variables)
	require.Contains(t, updated.Content, "max-width: 600px")
	require.Contains(t, updated.Content, "border-radius: 6px")

	rendered, err := templates.Preview(ctx, TemplateFollowup, nil)
	require.NoError(t, err)
	require.Contains(t, rendered.Content, `href="https://example.com/feedback"`)
}

func TestTemplateService_Create_Validation(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)

	_, err := templates.Create(context.Background(), TemplateInput{Name: " ", Subject: "", Content: ""})
	require.ErrorIs(t, err, ErrInvalid)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{
		"Template name is required",
		"Template subject is required",
		"Template content is required",
	}, ve.Problems)
}

func TestTemplateService_Delete(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)
	ctx := context.Background()

	require.ErrorIs(t, templates.Delete(ctx, TemplateWelcome), ErrForbidden)
	require.ErrorIs(t, templates.Delete(ctx, "missing"), ErrNotFound)

	_, err := templates.Create(ctx, TemplateInput{Name: "Custom", Subject: "s", Content: "<p>c</p>"})
	require.NoError(t, err)
	require.NoError(t, templates.Delete(ctx, "custom"))

	_, err = templates.Get(ctx, "custom")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateService_Render(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)

	rendered, err := templates.Render(context.Background(), TemplateConfirmation, map[string]string{
		"user_name":    "alice",
		"user_message": "<b>hi</b>",
	})
	require.NoError(t, err)
	require.Equal(t, "Thank you for contacting Acme", rendered.Subject)
	require.Contains(t, rendered.Content, "Dear alice,")
	require.Contains(t, rendered.Content, "&lt;b&gt;hi&lt;/b&gt;")

	_, err = templates.Render(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateService_Preview(t *testing.T) {
	_, templates, _ := newMailStack(t, nil)

	rendered, err := templates.Preview(context.Background(), TemplateWelcome, map[string]string{"user_name": "Jane"})
	require.NoError(t, err)
	require.Equal(t, "Welcome to Acme!", rendered.Subject)
	require.Contains(t, rendered.Content, "Hello Jane,")
	require.Contains(t, rendered.Content, "This is a sample message for preview purposes.")
}
