package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-auth-api/internal/application/session"
	"github.com/otp-auth-api/internal/domain"
	"github.com/otp-auth-api/internal/pkg/id"
	"github.com/otp-auth-api/internal/pkg/token"
)

// VerificationStore is the persistence surface of the code lifecycle.
// MarkUsed must be a conditional write keyed on the redemption mark being
// absent (returning domain.ErrConflict otherwise), and IncrementAttempts an
// atomic add; the state machine's race guarantees rest on both.
type VerificationStore interface {
	Insert(ctx context.Context, v *domain.Verification) error
	LatestUnused(ctx context.Context, identifier string, t domain.IdentifierType, flow domain.AuthFlow, step domain.AuthStep) (*domain.Verification, error)
	MarkUsed(ctx context.Context, scope, verificationID string, at time.Time) error
	IncrementAttempts(ctx context.Context, scope, verificationID string) (int, error)
}

// UserStore resolves users for the sign-in branch.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.User, error)
}

// UserRegistrar creates users for the sign-up branch.
type UserRegistrar interface {
	Register(ctx context.Context, identifier string, t domain.IdentifierType, name string) (*domain.User, error)
}

// SessionCreator mints the session issued on successful verification.
type SessionCreator interface {
	Create(ctx context.Context, userID string, ip, userAgent *string) (*session.CreateResult, error)
}

// Mailer delivers email codes.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender delivers phone codes.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type SendCodeInput struct {
	Identifier string
	Type       domain.IdentifierType
	Flow       domain.AuthFlow
	Step       domain.AuthStep
	// Name is carried for sign-up paths; not enforced at this layer.
	Name string
}

type SendCodeResult struct {
	Sent      bool      `json:"sent"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyCodeInput struct {
	Identifier string
	Type       domain.IdentifierType
	Flow       domain.AuthFlow
	Step       domain.AuthStep
	Code       string
	Name       string
	IPAddress  *string
	UserAgent  *string
}

type VerifyCodeResult struct {
	Verified     bool   `json:"verified"`
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`

	// Cookie material for the transport layer; not part of the response body.
	CookieToken   string    `json:"-"`
	CookieExpires time.Time `json:"-"`
}

type Service interface {
	// SendCode issues a fresh one-minute code, persists its record, and
	// dispatches it over the identifier's channel.
	SendCode(ctx context.Context, in SendCodeInput) (*SendCodeResult, error)
	// VerifyCode runs the redemption state machine and, on success, resolves
	// or creates the user and mints a session.
	VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeResult, error)
}

// ServiceDeps wires the service's collaborators.
type ServiceDeps struct {
	VerificationRepo VerificationStore
	UserRepo         UserStore
	Registrar        UserRegistrar
	Sessions         SessionCreator
	Mailer           Mailer
	SMSSender        SMSSender
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) SendCode(ctx context.Context, in SendCodeInput) (*SendCodeResult, error) {
	code, err := token.NewVerificationCode()
	if err != nil {
		slog.Error("generate verification code", "err", err)
		return nil, ErrSendFailed
	}

	now := time.Now().UTC()
	v := &domain.Verification{
		VerificationID: id.New(),
		Scope:          domain.VerificationScope(in.Identifier, in.Type, in.Flow, in.Step),
		Identifier:     in.Identifier,
		IdentifierType: in.Type,
		Flow:           in.Flow,
		Step:           in.Step,
		Code:           code,
		CreatedAt:      now,
		ExpiresAt:      now.Add(domain.CodeTTL),
	}
	if err := s.deps.VerificationRepo.Insert(ctx, v); err != nil {
		slog.Error("persist verification record", "identifier_type", in.Type, "flow", in.Flow, "err", err)
		return nil, ErrSendFailed
	}

	// The record is durable at this point. Delivery failure is a separate
	// outcome: the caller may retry the send, which issues a fresh record.
	if err := s.deliver(ctx, in, code); err != nil {
		slog.Error("deliver verification code", "identifier_type", in.Type, "err", err)
		return nil, ErrDeliveryFailed
	}

	return &SendCodeResult{Sent: true, ExpiresAt: v.ExpiresAt}, nil
}

func (s *service) deliver(ctx context.Context, in SendCodeInput, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It expires in 1 minute.", code)
	switch in.Type {
	case domain.IdentifierPhone:
		if s.deps.SMSSender == nil {
			return fmt.Errorf("sms channel is not configured")
		}
		return s.deps.SMSSender.SendSMS(ctx, in.Identifier, body)
	default:
		return s.deps.Mailer.SendEmail(in.Identifier, "Your verification code", body)
	}
}

func (s *service) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeResult, error) {
	v, err := s.deps.VerificationRepo.LatestUnused(ctx, in.Identifier, in.Type, in.Flow, in.Step)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		slog.Error("fetch verification record", "identifier_type", in.Type, "err", err)
		return nil, ErrVerifyFailed
	}

	now := time.Now().UTC()
	if now.After(v.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	// The fetch filters on unused records, but a racing redeemer may have won
	// between the read and here.
	if v.UsedAt != nil {
		return nil, ErrCodeUsed
	}
	if v.AttemptCount >= domain.MaxVerificationAttempts {
		// Same message as true expiry: the caller must not learn whether time
		// or the attempt budget rejected the code.
		return nil, ErrCodeExpired
	}

	if v.Code != in.Code {
		count, err := s.deps.VerificationRepo.IncrementAttempts(ctx, v.Scope, v.VerificationID)
		if err != nil {
			slog.Error("increment attempt count", "verification_id", v.VerificationID, "err", err)
			return nil, ErrVerifyFailed
		}
		remaining := domain.MaxVerificationAttempts - count
		if remaining <= 0 {
			return nil, ErrCodeExpired
		}
		return nil, &IncorrectCodeError{Remaining: remaining}
	}

	// Redeem. The conditional write serializes racing verifiers: the loser
	// sees ErrConflict here and fails as already-used.
	if err := s.deps.VerificationRepo.MarkUsed(ctx, v.Scope, v.VerificationID, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrCodeUsed
		}
		slog.Error("mark verification used", "verification_id", v.VerificationID, "err", err)
		return nil, ErrVerifyFailed
	}

	var userID string
	switch in.Flow {
	case domain.FlowSignIn:
		u, err := s.deps.UserRepo.GetByIdentifier(ctx, in.Identifier, in.Type)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			slog.Error("resolve user for sign-in", "identifier_type", in.Type, "err", err)
			return nil, ErrVerifyFailed
		}
		userID = u.UserID
	default: // sign_up
		if in.Name == "" {
			return nil, ErrNameRequired
		}
		u, err := s.deps.Registrar.Register(ctx, in.Identifier, in.Type, in.Name)
		if err != nil {
			slog.Error("register user", "identifier_type", in.Type, "err", err)
			return nil, ErrVerifyFailed
		}
		userID = u.UserID
	}

	created, err := s.deps.Sessions.Create(ctx, userID, in.IPAddress, in.UserAgent)
	if err != nil {
		slog.Error("create session after verification", "user_id", userID, "err", err)
		return nil, ErrVerifyFailed
	}

	return &VerifyCodeResult{
		Verified:      true,
		UserID:        userID,
		SessionToken:  created.Session.Token,
		CookieToken:   created.CookieToken,
		CookieExpires: created.Session.ExpiresAt,
	}, nil
}
