// Package gate decides whether a submission attempt is admitted and hands
// admitted submissions to the persistence collaborator.
package gate

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"collector/internal/model"
	"collector/internal/ratelimit"
	"collector/pkg/logger"
)

// SubmissionAttempt is one submit of the public form.
type SubmissionAttempt struct {
	Email           string
	Message         string
	ClientTimestamp time.Time
	SessionKey      string
	UserAgent       string
	IPAddress       string
	Locale          string
}

// ValidatedSubmission has passed every field check.
type ValidatedSubmission struct {
	Email   string
	Message string
}

type ReasonCode string

const (
	ReasonEmailInvalid    ReasonCode = "email_invalid"
	ReasonMessageTooShort ReasonCode = "message_too_short"
	ReasonRateLimited     ReasonCode = "rate_limited"
)

// Reason explains a rejection. RetryAfter is set for ReasonRateLimited only.
type Reason struct {
	Code       ReasonCode
	RetryAfter time.Duration
}

// Outcome is Ok when Admitted, otherwise Rejected with at least one reason.
type Outcome struct {
	Admitted   bool
	Validated  ValidatedSubmission
	Submission *model.Submission
	Reasons    []Reason
}

func (o Outcome) Has(code ReasonCode) bool {
	for _, r := range o.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// Persister stores admitted submissions in the emails collection.
type Persister interface {
	Create(ctx context.Context, submission model.Submission) (*model.Submission, error)
}

// KeyFunc returns the rate limit keys an attempt is counted against.
type KeyFunc func(attempt SubmissionAttempt) []string

// SessionKeys counts attempts per client session.
func SessionKeys(attempt SubmissionAttempt) []string {
	return []string{"session:" + attempt.SessionKey}
}

// SessionAndIPKeys counts attempts per session and per client IP, so a new
// session from the same address shares the address window.
func SessionAndIPKeys(attempt SubmissionAttempt) []string {
	keys := SessionKeys(attempt)
	if ip := strings.TrimSpace(attempt.IPAddress); ip != "" && ip != "unknown" {
		keys = append(keys, "ip:"+ip)
	}
	return keys
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithKeyFunc(fn KeyFunc) Option {
	return func(g *Gate) { g.keys = fn }
}

type Gate struct {
	persister Persister
	limiter   ratelimit.Limiter
	now       func() time.Time
	keys      KeyFunc

	mu       sync.Mutex
	inFlight map[string]struct{}
	locks    *keyLocks
}

// New builds a gate. A nil limiter uses a process-local window with the default limits.
func New(persister Persister, limiter ratelimit.Limiter, opts ...Option) (*Gate, error) {
	if persister == nil {
		return nil, ErrNotConfigured
	}
	if limiter == nil {
		limiter = ratelimit.NewMemoryStore(ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	}
	g := &Gate{
		persister: persister,
		limiter:   limiter,
		now:       time.Now,
		keys:      SessionKeys,
		inFlight:  make(map[string]struct{}),
		locks:     newKeyLocks(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gate) acquire(session string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[session]; busy {
		return false
	}
	g.inFlight[session] = struct{}{}
	return true
}

func (g *Gate) release(session string) {
	g.mu.Lock()
	delete(g.inFlight, session)
	g.mu.Unlock()
}

// Submit runs the rate limit check, then both field checks, and persists the
// submission only when all pass. Expected rejections are returned in the
// Outcome; the error is reserved for collaborator failures and ErrSubmissionInFlight.
//
// Admission is atomic per rate key: limiters implementing ratelimit.Reserver
// claim their slot before persisting, others are serialized by key.
func (g *Gate) Submit(ctx context.Context, attempt SubmissionAttempt) (Outcome, error) {
	if !g.acquire(attempt.SessionKey) {
		return Outcome{}, ErrSubmissionInFlight
	}
	defer g.release(attempt.SessionKey)

	now := g.now()
	keys := uniqueSorted(g.keys(attempt))
	reasons := fieldReasons(attempt)

	// 字段不合法时不会记录，普通 Check 即可
	if len(reasons) > 0 {
		limited, retryAfter, err := g.check(ctx, keys, now)
		if err != nil {
			return Outcome{}, err
		}
		if limited {
			return rateLimited(retryAfter), nil
		}
		return Outcome{Reasons: reasons}, nil
	}

	if r, ok := g.limiter.(ratelimit.Reserver); ok {
		return g.submitReserved(ctx, r, attempt, keys, now)
	}

	unlock := g.locks.lock(keys)
	defer unlock()

	limited, retryAfter, err := g.check(ctx, keys, now)
	if err != nil {
		return Outcome{}, err
	}
	if limited {
		return rateLimited(retryAfter), nil
	}
	stored, err := g.persist(ctx, attempt, now)
	if err != nil {
		return Outcome{}, err
	}
	for _, key := range keys {
		if err := g.limiter.Record(ctx, key, now); err != nil {
			logger.Warn("rate limit record failed",
				"module", "gate",
				"action", "record",
				"resource", "submission",
				"result", "failed",
				"key", key,
				"error", err,
			)
		}
	}
	return admitted(attempt, stored), nil
}

type reservation struct {
	key   string
	token string
}

func (g *Gate) submitReserved(ctx context.Context, r ratelimit.Reserver, attempt SubmissionAttempt, keys []string, now time.Time) (Outcome, error) {
	var held []reservation
	var retryAfter time.Duration
	limited := false
	for _, key := range keys {
		decision, token, err := r.Reserve(ctx, key, now)
		if err != nil {
			g.releaseAll(ctx, r, held)
			return Outcome{}, &CollaboratorError{Op: "rate limit check", Err: err}
		}
		if !decision.Allowed {
			limited = true
			retryAfter = max(retryAfter, decision.RetryAfter)
			continue
		}
		held = append(held, reservation{key: key, token: token})
	}
	if limited {
		g.releaseAll(ctx, r, held)
		return rateLimited(retryAfter), nil
	}

	stored, err := g.persist(ctx, attempt, now)
	if err != nil {
		g.releaseAll(ctx, r, held)
		return Outcome{}, err
	}
	return admitted(attempt, stored), nil
}

func (g *Gate) releaseAll(ctx context.Context, r ratelimit.Reserver, held []reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, res := range held {
		if err := r.Release(ctx, res.key, res.token); err != nil {
			logger.Warn("rate limit release failed",
				"module", "gate",
				"action", "release",
				"resource", "submission",
				"result", "failed",
				"key", res.key,
				"error", err,
			)
		}
	}
}

// check reports whether any key rejects, with the longest wait among them.
func (g *Gate) check(ctx context.Context, keys []string, now time.Time) (bool, time.Duration, error) {
	var retryAfter time.Duration
	limited := false
	for _, key := range keys {
		decision, err := g.limiter.Check(ctx, key, now)
		if err != nil {
			return false, 0, &CollaboratorError{Op: "rate limit check", Err: err}
		}
		if !decision.Allowed {
			limited = true
			retryAfter = max(retryAfter, decision.RetryAfter)
		}
	}
	return limited, retryAfter, nil
}

func (g *Gate) persist(ctx context.Context, attempt SubmissionAttempt, now time.Time) (*model.Submission, error) {
	stored, err := g.persister.Create(ctx, model.Submission{
		Email:     NormalizeEmail(attempt.Email),
		Message:   strings.TrimSpace(attempt.Message),
		UserAgent: attempt.UserAgent,
		IPAddress: attempt.IPAddress,
		Locale:    attempt.Locale,
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return nil, &CollaboratorError{Op: "create submission", Err: err}
	}
	return stored, nil
}

func fieldReasons(attempt SubmissionAttempt) []Reason {
	var reasons []Reason
	if !ValidateEmail(attempt.Email) {
		reasons = append(reasons, Reason{Code: ReasonEmailInvalid})
	}
	if !ValidateMessage(attempt.Message) {
		reasons = append(reasons, Reason{Code: ReasonMessageTooShort})
	}
	return reasons
}

func rateLimited(retryAfter time.Duration) Outcome {
	return Outcome{Reasons: []Reason{{Code: ReasonRateLimited, RetryAfter: retryAfter}}}
}

func admitted(attempt SubmissionAttempt, stored *model.Submission) Outcome {
	return Outcome{
		Admitted: true,
		Validated: ValidatedSubmission{
			Email:   NormalizeEmail(attempt.Email),
			Message: strings.TrimSpace(attempt.Message),
		},
		Submission: stored,
	}
}

func uniqueSorted(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// keyLocks hands out one mutex per rate key, dropped when nobody holds it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock takes every key in order; keys must already be sorted and unique.
func (k *keyLocks) lock(keys []string) func() {
	held := make([]*keyLock, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &keyLock{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}
