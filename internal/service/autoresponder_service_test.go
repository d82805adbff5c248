package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collector/internal/autoresponder"
	"collector/internal/model"
	"collector/internal/repository"
)

func newAutoResponder(t *testing.T) (AutoResponderService, MailService, func() []string) {
	t.Helper()
	db, templates, mail := newMailStack(t, &recordingSender{})
	svc := NewAutoResponderService(repository.NewRuleRepository(db), templates, mail, time.UTC)
	return svc, mail, func() []string { return pendingEmails(t, db) }
}

func TestAutoResponderService_CreateRule_Validation(t *testing.T) {
	svc, _, _ := newAutoResponder(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, RuleInput{Name: "", TemplateID: "missing", Condition: autoresponder.TimeOfDay{StartHour: 25, EndHour: 3}})
	require.ErrorIs(t, err, ErrInvalid)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Problems, 3)
	require.Contains(t, ve.Problems, "Rule name is required")
	require.Contains(t, ve.Problems, "Template does not exist")
}

func TestAutoResponderService_ProcessFirstMatchByPriority(t *testing.T) {
	svc, _, pending := newAutoResponder(t)
	ctx := context.Background()

	catchAll, err := svc.CreateRule(ctx, RuleInput{
		Name: "Everyone", TemplateID: TemplateWelcome, Condition: autoresponder.Always{}, Priority: 10, Enabled: true,
	})
	require.NoError(t, err)
	pricing, err := svc.CreateRule(ctx, RuleInput{
		Name: "Pricing", TemplateID: TemplateFollowup, Condition: autoresponder.ContainsKeyword{Keyword: "PRICE"}, Priority: 1, Enabled: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateRule(ctx, RuleInput{
		Name: "Disabled", TemplateID: TemplateConfirmation, Condition: autoresponder.Always{}, Priority: 0, Enabled: false,
	})
	require.NoError(t, err)

	fired, err := svc.Process(ctx, model.Submission{Email: "bob@example.com", Message: "what is the price?", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, fired)
	require.Equal(t, pricing.ID, fired.ID)

	fired, err = svc.Process(ctx, model.Submission{Email: "carol@example.com", Message: "just saying hello", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, fired)
	require.Equal(t, catchAll.ID, fired.ID)

	require.Equal(t, []string{"bob@example.com", "carol@example.com"}, pending())

	logs, err := svc.Responses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestAutoResponderService_ProcessNoMatch(t *testing.T) {
	svc, _, pending := newAutoResponder(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, RuleInput{
		Name: "Corporate", TemplateID: TemplateWelcome, Condition: autoresponder.EmailDomain{Domain: "corp.com"}, Priority: 1, Enabled: true,
	})
	require.NoError(t, err)

	fired, err := svc.Process(ctx, model.Submission{Email: "x@gmail.com", Message: "hello there", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.Nil(t, fired)
	require.Empty(t, pending())

	fired, err = svc.Process(ctx, model.Submission{Email: "x@Sales.CORP.com", Message: "hello there", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, fired)
}

func TestAutoResponderService_UpdateAndDelete(t *testing.T) {
	svc, _, _ := newAutoResponder(t)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, RuleInput{Name: "Night", TemplateID: TemplateWelcome, Condition: autoresponder.TimeOfDay{StartHour: 22, EndHour: 23}, Enabled: true})
	require.NoError(t, err)

	updated, err := svc.UpdateRule(ctx, rule.ID, RuleInput{Name: "Late night", TemplateID: TemplateFollowup, Condition: autoresponder.TimeOfDay{StartHour: 20, EndHour: 23}, Priority: 3, Enabled: false})
	require.NoError(t, err)
	require.Equal(t, "Late night", updated.Name)
	require.Equal(t, autoresponder.TimeOfDay{StartHour: 20, EndHour: 23}, updated.Condition)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.False(t, rules[0].Enabled)

	_, err = svc.UpdateRule(ctx, 999, RuleInput{Name: "x", TemplateID: TemplateWelcome, Condition: autoresponder.Always{}})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))
	require.ErrorIs(t, svc.DeleteRule(ctx, rule.ID), ErrNotFound)
}

func TestSubmissionTemplateData(t *testing.T) {
	data := submissionTemplateData(model.Submission{Email: "jane.doe@example.com", Message: "hi"})
	require.Equal(t, map[string]string{
		"user_name":    "jane.doe",
		"user_email":   "jane.doe@example.com",
		"user_message": "hi",
	}, data)
}
