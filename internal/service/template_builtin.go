package service

import "collector/internal/model"

func builtinTemplates() []model.Template {
	return []model.Template{
		{
			ID:      TemplateWelcome,
			Name:    "Welcome Email",
			Subject: "Welcome to {{site_name}}!",
			Content: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4facfe;">Welcome to {{site_name}}!</h2>
  <p>Hello {{user_name}},</p>
  <p>Thank you for your interest in our services. We've received your message and will get back to you soon.</p>
  <p>Your message: "{{user_message}}"</p>
  <p>Best regards,<br>The {{site_name}} Team</p>
</div>`,
			Variables: []string{"site_name", "user_name", "user_message"},
			Builtin:   true,
		},
		{
			ID:      TemplateConfirmation,
			Name:    "Confirmation Email",
			Subject: "Thank you for contacting {{site_name}}",
			Content: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #10b981;">Message Received!</h2>
  <p>Dear {{user_name}},</p>
  <p>We have successfully received your message and it's being processed by our team.</p>
  <div style="background: #f3f4f6; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <strong>Your Message:</strong><br>
    {{user_message}}
  </div>
  <p>We'll respond to you within 24 hours.</p>
  <p>Thank you for choosing {{site_name}}!</p>
</div>`,
			Variables: []string{"site_name", "user_name", "user_message"},
			Builtin:   true,
		},
		{
			ID:      TemplateVerification,
			Name:    "Email Verification",
			Subject: "Verify your email address - {{site_name}}",
			Content: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #f59e0b;">Verify Your Email</h2>
  <p>Hello,</p>
  <p>Please verify your email address by clicking the button below:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{verification_link}}" style="background: #4facfe; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Verify Email</a>
  </div>
  <p>Or copy and paste this link in your browser:</p>
  <p style="word-break: break-all; color: #6b7280;">{{verification_link}}</p>
  <p>This link will expire in 24 hours.</p>
</div>`,
			Variables: []string{"site_name", "verification_link"},
			Builtin:   true,
		},
		{
			ID:      TemplateFollowup,
			Name:    "Follow-up Email",
			Subject: "How was your experience with {{site_name}}?",
			Content: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #667eea;">We'd love your feedback!</h2>
  <p>Hello {{user_name}},</p>
  <p>We hope you're satisfied with our service. Your feedback is important to us!</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{feedback_link}}" style="background: #10b981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Leave Feedback</a>
  </div>
  <p>Thank you for choosing {{site_name}}!</p>
</div>`,
			Variables: []string{"site_name", "user_name", "feedback_link"},
			Builtin:   true,
		},
	}
}
