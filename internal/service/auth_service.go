//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"collector/internal/access"
	"collector/internal/gate"
	"collector/internal/hashutil"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
)

const (
	keyAuthJWTSecret = "auth.jwt_secret"

	tokenTTL            = 7 * 24 * time.Hour
	passwordResetTTL    = time.Hour
	activityThrottle    = time.Minute
	minPasswordLength   = 8
	maxPasswordBytes    = 72 // bcrypt 输入上限
	minPasswordStrength = 3
	minNameLength       = 2
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	ErrAccountDisabled    = fmt.Errorf("account disabled: %w", ErrForbidden)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", ErrConflict)

	namePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
)

// Security log events.
const (
	EventSignUp             = "sign_up"
	EventSignInSuccess      = "sign_in_success"
	EventSignInFailure      = "sign_in_failure"
	EventSignOut            = "sign_out"
	EventPasswordResetAsked = "password_reset_requested"
	EventPasswordReset      = "password_reset"
	EventProfileUpdated     = "profile_updated"
)

// ClientInfo identifies the caller for the security log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
	Session   access.Session
}

// PasswordScore is the result of the live strength meter. Score is 0..5.
type PasswordScore struct {
	Score      int    `json:"score"`
	Label      string `json:"label"`
	Acceptable bool   `json:"acceptable"`
}

type AuthService interface {
	HasUsers(ctx context.Context) (bool, error)
	SignUp(ctx context.Context, input SignUpInput, client ClientInfo) (*AuthResponse, error)
	SignIn(ctx context.Context, email, password string, client ClientInfo) (*AuthResponse, error)
	SignOut(ctx context.Context, session *access.Session, client ClientInfo) error
	ValidateToken(ctx context.Context, token string) (*access.Session, error)
	CurrentUser(ctx context.Context, userID int64) (*model.User, error)
	PasswordStrength(password string) PasswordScore
	RequestPasswordReset(ctx context.Context, email string, client ClientInfo) error
	ResetPassword(ctx context.Context, token, newPassword string, client ClientInfo) error
	UpdateProfile(ctx context.Context, userID int64, name string) (*model.User, error)
	TouchActivity(ctx context.Context, userID int64) error
}

// AuthDeps groups the collaborators of the auth service. Mail may be nil.
type AuthDeps struct {
	Users    repository.UserRepository
	Resets   repository.PasswordResetRepository
	Security repository.SecurityLogRepository
	Settings repository.SettingsRepository
	Mail     MailService
	BaseURL  string
	SiteName string
}

type authService struct {
	deps AuthDeps
	now  func() time.Time

	secretMu sync.Mutex
	secret   []byte

	// signupMu serializes account creation so only one first admin exists.
	signupMu sync.Mutex

	touchMu   sync.Mutex
	lastTouch map[int64]time.Time
}

func NewAuthService(deps AuthDeps) AuthService {
	deps.BaseURL = strings.TrimRight(deps.BaseURL, "/")
	return &authService{
		deps:      deps,
		now:       time.Now,
		lastTouch: make(map[int64]time.Time),
	}
}

func (s *authService) HasUsers(ctx context.Context) (bool, error) {
	n, err := s.deps.Users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// ValidateSignUp lists every problem with input.
func ValidateSignUp(input SignUpInput) []string {
	var problems []string
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		problems = append(problems, "name is required")
	case utf8.RuneCountInString(name) < minNameLength:
		problems = append(problems, "name must be at least 2 characters long")
	case !namePattern.MatchString(name):
		problems = append(problems, "name can only contain letters and spaces")
	}
	if !gate.ValidateEmail(input.Email) {
		problems = append(problems, "email is invalid")
	}
	switch {
	case len(input.Password) < minPasswordLength:
		problems = append(problems, "password must be at least 8 characters long")
	case len(input.Password) > maxPasswordBytes:
		problems = append(problems, errPasswordTooLong)
	case ScorePassword(input.Password).Score < minPasswordStrength:
		problems = append(problems, "password is too weak")
	}
	return problems
}

func (s *authService) SignUp(ctx context.Context, input SignUpInput, client ClientInfo) (*AuthResponse, error) {
	if problems := ValidateSignUp(input); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	email := gate.NormalizeEmail(input.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	if _, err := s.deps.Users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNoRows) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	count, err := s.deps.Users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	role := access.RoleUser
	if count == 0 {
		role = access.RoleAdmin
	}

	user, err := s.deps.Users.Create(ctx, model.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         string(role),
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logSecurity(ctx, &user.ID, EventSignUp, "role="+string(role), client)
	logger.Info("user signed up", "module", "service", "action", "sign_up", "resource", "user", "result", "ok",
		"user_id", user.ID, "role", string(role))

	return s.issue(ctx, *user)
}

func (s *authService) SignIn(ctx context.Context, email, password string, client ClientInfo) (*AuthResponse, error) {
	email = gate.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			s.logSecurity(ctx, nil, EventSignInFailure, "email="+email, client)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logSecurity(ctx, &user.ID, EventSignInFailure, "reason=password", client)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logSecurity(ctx, &user.ID, EventSignInFailure, "reason=inactive", client)
		return nil, ErrAccountDisabled
	}

	now := s.now().UTC()
	if err := s.deps.Users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}
	user.LastLogin = &now
	user.LastActivity = &now

	s.logSecurity(ctx, &user.ID, EventSignInSuccess, "", client)
	return s.issue(ctx, *user)
}

func (s *authService) SignOut(ctx context.Context, session *access.Session, client ClientInfo) error {
	var userID *int64
	if session != nil {
		id := session.UserID
		userID = &id
	}
	s.logSecurity(ctx, userID, EventSignOut, "", client)
	return nil
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *authService) issue(ctx context.Context, user model.User) (*AuthResponse, error) {
	secret, err := s.jwtSecret(ctx, true)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(tokenTTL)
	claims := sessionClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      user,
		Session:   access.NewSession(user.ID, user.Email, user.Name, user.Role),
	}, nil
}

// ValidateToken parses token and reloads the user so role and active
// changes apply to existing sessions.
func (s *authService) ValidateToken(ctx context.Context, token string) (*access.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	secret, err := s.jwtSecret(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, ErrInvalidToken
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	session := access.NewSession(user.ID, user.Email, user.Name, user.Role)
	return &session, nil
}

// jwtSecret loads the signing secret from settings, creating it on first use
// when create is set.
func (s *authService) jwtSecret(ctx context.Context, create bool) ([]byte, error) {
	s.secretMu.Lock()
	defer s.secretMu.Unlock()
	if len(s.secret) > 0 {
		return s.secret, nil
	}

	setting, err := s.deps.Settings.Get(ctx, keyAuthJWTSecret)
	if err != nil {
		return nil, fmt.Errorf("load jwt secret: %w", err)
	}
	if setting != nil && setting.Value != "" {
		s.secret = []byte(setting.Value)
		return s.secret, nil
	}
	if !create {
		return nil, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	value := hex.EncodeToString(buf)
	if err := s.deps.Settings.Set(ctx, keyAuthJWTSecret, value); err != nil {
		return nil, fmt.Errorf("store jwt secret: %w", err)
	}
	s.secret = []byte(value)
	return s.secret, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) PasswordStrength(password string) PasswordScore {
	return ScorePassword(password)
}

const errPasswordTooLong = "password must be at most 72 bytes long"

var strengthLabels = []string{"Very Weak", "Weak", "Fair", "Good", "Strong"}

// ScorePassword awards one point each for length ≥ 8, length ≥ 12, a
// lower-case letter, an upper-case letter, a digit and a symbol, capped at 5.
func ScorePassword(password string) PasswordScore {
	score := 0
	n := utf8.RuneCountInString(password)
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	if score > 5 {
		score = 5
	}

	label := strengthLabels[0]
	if score > 0 {
		label = strengthLabels[score-1]
	}
	return PasswordScore{
		Score:      score,
		Label:      label,
		Acceptable: n >= minPasswordLength && len(password) <= maxPasswordBytes && score >= minPasswordStrength,
	}
}

// RequestPasswordReset never reveals whether email belongs to an account.
func (s *authService) RequestPasswordReset(ctx context.Context, email string, client ClientInfo) error {
	email = gate.NormalizeEmail(email)
	if !gate.ValidateEmail(email) {
		return ErrInvalid
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			s.logSecurity(ctx, nil, EventPasswordResetAsked, "email="+email, client)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	now := s.now().UTC()
	token := uuid.NewString()
	reset := model.PasswordReset{
		Token:     hashutil.TokenDigest(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(passwordResetTTL),
		CreatedAt: now,
	}
	if err := s.deps.Resets.Create(ctx, reset); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	s.logSecurity(ctx, &user.ID, EventPasswordResetAsked, "", client)

	if s.deps.Mail == nil {
		return nil
	}
	link := s.deps.BaseURL + "/reset-password?token=" + url.QueryEscape(token)
	if _, err := s.deps.Mail.QueueRaw(ctx, model.OutboxEmail{
		To:      user.Email,
		Subject: "Reset your " + s.deps.SiteName + " password",
		Content: passwordResetContent(user.Name, link),
		Kind:    model.EmailPasswordReset,
	}); err != nil {
		logger.Warn("queue password reset email failed", "module", "service", "action", "enqueue", "resource", "email", "result", "failed",
			"user_id", user.ID, "error", err)
	}
	return nil
}

func passwordResetContent(name, link string) string {
	escaped := html.EscapeString(link)
	return "<p>Hi " + html.EscapeString(name) + ",</p>" +
		"<p>We received a request to reset your password. The link below is valid for one hour.</p>" +
		`<p><a href="` + escaped + `">` + escaped + "</a></p>" +
		"<p>If you did not ask for this you can ignore this email.</p>"
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string, client ClientInfo) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if len(newPassword) > maxPasswordBytes {
		return &ValidationError{Problems: []string{errPasswordTooLong}}
	}
	if len(newPassword) < minPasswordLength || ScorePassword(newPassword).Score < minPasswordStrength {
		return &ValidationError{Problems: []string{"password is too weak"}}
	}

	// 库里只存摘要
	digest := hashutil.TokenDigest(token)
	reset, err := s.deps.Resets.Get(ctx, digest)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load password reset: %w", err)
	}
	if reset.Used {
		return ErrInvalidToken
	}
	if s.now().After(reset.ExpiresAt) {
		return ErrTokenExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.deps.Users.UpdatePassword(ctx, reset.UserID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.deps.Resets.MarkUsed(ctx, digest); err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	s.logSecurity(ctx, &reset.UserID, EventPasswordReset, "", client)
	return nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength || !namePattern.MatchString(name) {
		return nil, &ValidationError{Problems: []string{"name must be at least 2 letters and contain only letters and spaces"}}
	}
	if err := s.deps.Users.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update name: %w", err)
	}
	s.logSecurity(ctx, &userID, EventProfileUpdated, "", ClientInfo{})
	return s.CurrentUser(ctx, userID)
}

// TouchActivity records activity at most once per minute per user.
func (s *authService) TouchActivity(ctx context.Context, userID int64) error {
	now := s.now()
	s.touchMu.Lock()
	if last, ok := s.lastTouch[userID]; ok && now.Sub(last) < activityThrottle {
		s.touchMu.Unlock()
		return nil
	}
	s.lastTouch[userID] = now
	s.touchMu.Unlock()

	if err := s.deps.Users.TouchActivity(ctx, userID, now.UTC()); err != nil && !errors.Is(err, repository.ErrNoRows) {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

func (s *authService) logSecurity(ctx context.Context, userID *int64, event, details string, client ClientInfo) {
	if s.deps.Security == nil {
		return
	}
	err := s.deps.Security.Create(ctx, model.SecurityEvent{
		UserID:    userID,
		Event:     event,
		Details:   details,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		logger.Warn("security log write failed", "module", "service", "action", "log", "resource", "security", "result", "failed",
			"event", event, "error", err)
	}
}
