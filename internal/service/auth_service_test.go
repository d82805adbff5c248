package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collector/internal/access"
	"collector/internal/hashutil"
	"collector/internal/model"
	"collector/internal/repository"
)

type authFixture struct {
	db       *sql.DB
	svc      AuthService
	settings *settingsRepoStub
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	db, _, mail := newMailStack(t, &recordingSender{})
	settings := newSettingsRepoStub()
	svc := NewAuthService(AuthDeps{
		Users:    repository.NewUserRepository(db),
		Resets:   repository.NewPasswordResetRepository(db),
		Security: repository.NewSecurityLogRepository(db),
		Settings: settings,
		Mail:     mail,
		BaseURL:  "https://collector.example",
		SiteName: "Acme",
	})
	return authFixture{db: db, svc: svc, settings: settings}
}

func (f authFixture) securityEvents(t *testing.T) []string {
	t.Helper()
	rows, err := f.db.Query(`SELECT event FROM security_logs ORDER BY created_at, id`)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var e string
		require.NoError(t, rows.Scan(&e))
		out = append(out, e)
	}
	return out
}

var testClient = ClientInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

func TestAuthService_SignUp_FirstUserIsAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	has, err := f.svc.HasUsers(ctx)
	require.NoError(t, err)
	require.False(t, has)

	first, err := f.svc.SignUp(ctx, SignUpInput{Email: "Alice@Example.com", Password: "Secret123!", Name: " Alice Smith "}, testClient)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", first.User.Email)
	require.Equal(t, "Alice Smith", first.User.Name)
	require.Equal(t, string(access.RoleAdmin), first.User.Role)
	require.Empty(t, first.User.PasswordHash, "hash must not leave the service")
	require.NotEmpty(t, first.Token)
	require.True(t, access.HasCapability(&first.Session, access.CapManageUsers))

	second, err := f.svc.SignUp(ctx, SignUpInput{Email: "bob@example.com", Password: "Secret123!", Name: "Bob"}, testClient)
	require.NoError(t, err)
	require.Equal(t, string(access.RoleUser), second.User.Role)
	require.False(t, access.HasCapability(&second.Session, access.CapWrite))

	_, ok := f.settings.value(keyAuthJWTSecret)
	require.True(t, ok, "jwt secret persisted on first use")

	has, err = f.svc.HasUsers(ctx)
	require.NoError(t, err)
	require.True(t, has)

	require.Equal(t, []string{EventSignUp, EventSignUp}, f.securityEvents(t))
}

func TestAuthService_SignUp_Validation(t *testing.T) {
	cases := []struct {
		name  string
		input SignUpInput
		want  string
	}{
		{name: "missing name", input: SignUpInput{Email: "a@b.co", Password: "Secret123!"}, want: "name is required"},
		{name: "short name", input: SignUpInput{Email: "a@b.co", Password: "Secret123!", Name: "A"}, want: "name must be at least 2 characters long"},
		{name: "digits in name", input: SignUpInput{Email: "a@b.co", Password: "Secret123!", Name: "R2D2"}, want: "name can only contain letters and spaces"},
		{name: "bad email", input: SignUpInput{Email: "nope", Password: "Secret123!", Name: "Alice"}, want: "email is invalid"},
		{name: "short password", input: SignUpInput{Email: "a@b.co", Password: "Ab1!", Name: "Alice"}, want: "password must be at least 8 characters long"},
		{name: "weak password", input: SignUpInput{Email: "a@b.co", Password: "aaaaaaaa", Name: "Alice"}, want: "password is too weak"},
		{name: "long password", input: SignUpInput{Email: "a@b.co", Password: "Secret123!" + strings.Repeat("x", 63), Name: "Alice"}, want: "password must be at most 72 bytes long"},
		{name: "long multibyte password", input: SignUpInput{Email: "a@b.co", Password: "Secret123!" + strings.Repeat("é", 32), Name: "Alice"}, want: "password must be at most 72 bytes long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.SignUp(context.Background(), tc.input, testClient)
			require.ErrorIs(t, err, ErrInvalid)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Contains(t, ve.Problems, tc.want)
		})
	}
}

func TestAuthService_SignUp_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "ALICE@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_SignIn(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	signedUp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, "alice@example.com", "wrong", testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.SignIn(ctx, "ghost@example.com", "Secret123!", testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := f.svc.SignIn(ctx, " ALICE@example.com", "Secret123!", testClient)
	require.NoError(t, err)
	require.Equal(t, signedUp.User.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLogin)

	require.Equal(t, []string{EventSignUp, EventSignInFailure, EventSignInFailure, EventSignInSuccess}, f.securityEvents(t))
}

func TestAuthService_SignIn_InactiveRefused(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)
	require.NoError(t, repository.NewUserRepository(f.db).SetActive(ctx, resp.User.ID, false))

	_, err = f.svc.SignIn(ctx, "alice@example.com", "Secret123!", testClient)
	require.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.ValidateToken(ctx, resp.Token)
	require.ErrorIs(t, err, ErrForbidden, "existing sessions end once the account is disabled")
}

func TestAuthService_ValidateToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.ValidateToken(ctx, "anything")
	require.ErrorIs(t, err, ErrInvalidToken, "no secret yet")

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	session, err := f.svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, session.UserID)
	require.Equal(t, access.RoleAdmin, session.Role)

	require.NoError(t, repository.NewUserRepository(f.db).UpdateRole(ctx, resp.User.ID, "moderator"))
	session, err = f.svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	require.Equal(t, access.RoleModerator, session.Role, "role changes apply to live sessions")

	_, err = f.svc.ValidateToken(ctx, resp.Token+"x")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.ValidateToken(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	SetAuthClock(f.svc, func() time.Time { return time.Now().Add(tokenTTL + time.Hour) })
	_, err = f.svc.ValidateToken(ctx, resp.Token)
	require.ErrorIs(t, err, ErrInvalidToken, "expired token")
}

func TestAuthService_SignOutLogsEvent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, &resp.Session, testClient))
	require.NoError(t, f.svc.SignOut(ctx, nil, testClient))
	require.Equal(t, []string{EventSignUp, EventSignOut, EventSignOut}, f.securityEvents(t))
}

func TestScorePassword(t *testing.T) {
	cases := []struct {
		password   string
		score      int
		label      string
		acceptable bool
	}{
		{"", 0, "Very Weak", false},
		{"abc", 1, "Very Weak", false},
		{"abcdefgh", 2, "Weak", false},
		{"abcdefg1", 3, "Fair", true},
		{"Abcdefg1", 4, "Good", true},
		{"Abcdefg1!", 5, "Strong", true},
		{"Abcdefghijk1!", 5, "Strong", true},
		{"Ab1!", 4, "Good", false},
		{"Abcdefg1!" + strings.Repeat("x", 64), 5, "Strong", false},
	}
	for _, tc := range cases {
		got := ScorePassword(tc.password)
		require.Equal(t, tc.score, got.Score, tc.password)
		require.Equal(t, tc.label, got.Label, tc.password)
		require.Equal(t, tc.acceptable, got.Acceptable, tc.password)
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com", testClient), "unknown accounts look the same")
	require.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "bad", testClient), ErrInvalid)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com", testClient))

	var subject, content string
	require.NoError(t, f.db.QueryRow(`SELECT subject, content FROM pending_emails WHERE kind = ?`, string(model.EmailPasswordReset)).Scan(&subject, &content))
	require.Equal(t, "Reset your Acme password", subject)
	token := resetTokenFromEmail(t, content)

	var stored string
	require.NoError(t, f.db.QueryRow(`SELECT token FROM password_resets WHERE user_id = ?`, resp.User.ID).Scan(&stored))
	require.Equal(t, hashutil.TokenDigest(token), stored, "only the digest is stored")

	err = f.svc.ResetPassword(ctx, token, "weak", testClient)
	require.ErrorIs(t, err, ErrInvalid)

	err = f.svc.ResetPassword(ctx, token, "NewSecret456!"+strings.Repeat("x", 60), testClient)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"password must be at most 72 bytes long"}, ve.Problems)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret456!", testClient))
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "NewSecret456!", testClient), ErrInvalidToken, "single use")
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "nope", "NewSecret456!", testClient), ErrInvalidToken)

	_, err = f.svc.SignIn(ctx, "alice@example.com", "Secret123!", testClient)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "alice@example.com", "NewSecret456!", testClient)
	require.NoError(t, err)
}

func TestAuthService_ResetPasswordExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com", testClient))

	var content string
	require.NoError(t, f.db.QueryRow(`SELECT content FROM pending_emails WHERE kind = ?`, string(model.EmailPasswordReset)).Scan(&content))
	token := resetTokenFromEmail(t, content)

	SetAuthClock(f.svc, func() time.Time { return time.Now().Add(passwordResetTTL + time.Minute) })
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "NewSecret456!", testClient), ErrTokenExpired)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(ctx, resp.User.ID, "  Alice Cooper ")
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", updated.Name)
	require.Empty(t, updated.PasswordHash)

	_, err = f.svc.UpdateProfile(ctx, resp.User.ID, "4lice")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.UpdateProfile(ctx, 42, "Nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_TouchActivityThrottled(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, SignUpInput{Email: "alice@example.com", Password: "Secret123!", Name: "Alice"}, testClient)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetAuthClock(f.svc, func() time.Time { return clock })

	lastActivity := func() time.Time {
		u, err := f.svc.CurrentUser(ctx, resp.User.ID)
		require.NoError(t, err)
		require.NotNil(t, u.LastActivity)
		return u.LastActivity.UTC()
	}

	require.NoError(t, f.svc.TouchActivity(ctx, resp.User.ID))
	require.True(t, base.Equal(lastActivity()))

	clock = base.Add(30 * time.Second)
	require.NoError(t, f.svc.TouchActivity(ctx, resp.User.ID))
	require.True(t, base.Equal(lastActivity()), "second touch within a minute is skipped")

	clock = base.Add(2 * time.Minute)
	require.NoError(t, f.svc.TouchActivity(ctx, resp.User.ID))
	require.True(t, base.Add(2*time.Minute).Equal(lastActivity()))
}

func resetTokenFromEmail(t *testing.T, content string) string {
	t.Helper()
	const marker = "https://collector.example/reset-password?token="
	idx := strings.Index(content, marker)
	require.GreaterOrEqual(t, idx, 0, "reset link missing")
	rest := content[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	require.Greater(t, end, 0)
	return rest[:end]
}
