package contact

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ratelimit"
)

// MinFillTime is the fastest a human is expected to fill the form.
const MinFillTime = 3 * time.Second

const (
	maxName    = 100
	maxEmail   = 254
	minMessage = 10
	maxMessage = 5000
)

type Submission struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
	Honeypot   string `json:"honeypot"`
	RenderedAt int64  `json:"renderedAt"` // unix millis when the form was rendered
}

type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Messages, "; ")
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) RetryAfterSeconds() int {
	return ratelimit.Decision{RetryAfter: e.RetryAfter}.RetryAfterSeconds()
}

type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDiscarded Outcome = "discarded"
)

type Inserter interface {
	InsertMessage(ctx context.Context, m domain.Message) error
}

type Service struct {
	Store  Inserter
	Guard  ratelimit.Limiter
	Logger *zap.Logger
	Now    func() time.Time
}

func NewService(store Inserter, guard ratelimit.Limiter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:  store,
		Guard:  guard,
		Logger: logger,
		Now:    time.Now,
	}
}

// Submit applies the per-IP guard, then the bot heuristics, then validation.
// Bot-looking submissions return OutcomeDiscarded with a nil error so the
// caller answers exactly as for a stored message.
func (s *Service) Submit(ctx context.Context, sub Submission, ip string) (Outcome, domain.Message, error) {
	if s.Guard != nil {
		if d := s.Guard.Decide(ip); !d.Allowed {
			return "", domain.Message{}, &RateLimitedError{RetryAfter: d.RetryAfter}
		}
	}

	now := s.Now()

	if reason := botReason(sub, now); reason != "" {
		s.Logger.Info("contact submission discarded", zap.String("reason", reason), zap.String("ip", ip))
		return OutcomeDiscarded, domain.Message{}, nil
	}

	m, err := Validate(sub)
	if err != nil {
		return "", domain.Message{}, err
	}

	m.ID = uuid.NewString()
	m.IP = ip
	m.CreatedAt = now.UTC()

	if err := s.Store.InsertMessage(ctx, m); err != nil {
		return "", domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	return OutcomeStored, m, nil
}

func botReason(sub Submission, now time.Time) string {
	if strings.TrimSpace(sub.Honeypot) != "" {
		return "honeypot"
	}
	if sub.RenderedAt <= 0 {
		return "missing_render_time"
	}
	if now.Sub(time.UnixMilli(sub.RenderedAt)) < MinFillTime {
		return "too_fast"
	}
	return ""
}

// Validate checks presence, format and length and returns the trimmed message.
func Validate(sub Submission) (domain.Message, error) {
	var msgs []string

	name := strings.TrimSpace(sub.Name)
	email := strings.TrimSpace(sub.Email)
	body := strings.TrimSpace(sub.Message)

	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		msgs = append(msgs, "name is required")
	case n > maxName:
		msgs = append(msgs, fmt.Sprintf("name must be at most %d characters", maxName))
	}

	switch {
	case email == "":
		msgs = append(msgs, "email is required")
	case len(email) > maxEmail || !validEmail(email):
		msgs = append(msgs, "email is invalid")
	}

	switch n := utf8.RuneCountInString(body); {
	case n == 0:
		msgs = append(msgs, "message is required")
	case n < minMessage:
		msgs = append(msgs, fmt.Sprintf("message must be at least %d characters", minMessage))
	case n > maxMessage:
		msgs = append(msgs, fmt.Sprintf("message must be at most %d characters", maxMessage))
	}

	if len(msgs) > 0 {
		return domain.Message{}, &ValidationError{Messages: msgs}
	}
	return domain.Message{Name: name, Email: email, Body: body}, nil
}

// validEmail accepts a bare address with a dotted domain.
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s || a.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func IsRateLimited(err error) (*RateLimitedError, bool) {
	var re *RateLimitedError
	ok := errors.As(err, &re)
	return re, ok
}
