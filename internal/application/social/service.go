package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-auth-api/internal/application/session"
	"github.com/otp-auth-api/internal/domain"
	googleinfra "github.com/otp-auth-api/internal/infrastructure/google"
	"github.com/otp-auth-api/internal/pkg/id"
)

// GoogleVerifier validates a Google ID token and extracts its claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*googleinfra.Payload, error)
}

// UserStore is the user persistence surface for find-or-create.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

// SessionCreator mints the session on successful social sign-in.
type SessionCreator interface {
	Create(ctx context.Context, userID string, ip, userAgent *string) (*session.CreateResult, error)
}

// SignInResult mirrors the verification result shape for the transport layer.
type SignInResult struct {
	UserID        string
	SessionToken  string
	CookieToken   string
	CookieExpires time.Time
}

type Service interface {
	// SignInWithGoogle verifies the ID token and finds or creates the user by
	// their verified Google email, then mints a session.
	SignInWithGoogle(ctx context.Context, idToken string, ip, userAgent *string) (*SignInResult, error)
}

type service struct {
	verifier GoogleVerifier
	userRepo UserStore
	sessions SessionCreator
}

func NewService(verifier GoogleVerifier, userRepo UserStore, sessions SessionCreator) Service {
	return &service{verifier: verifier, userRepo: userRepo, sessions: sessions}
}

func (s *service) SignInWithGoogle(ctx context.Context, idToken string, ip, userAgent *string) (*SignInResult, error) {
	payload, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if payload.Email == "" || !payload.EmailVerified {
		return nil, fmt.Errorf("google account email is not verified: %w", domain.ErrUnauthorized)
	}

	u, err := s.userRepo.GetByIdentifier(ctx, payload.Email, domain.IdentifierEmail)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("resolve user for google sign-in", "err", err)
			return nil, fmt.Errorf("sign-in failed, please try again: %w", domain.ErrUnauthorized)
		}
		u, err = s.register(ctx, payload)
		if err != nil {
			slog.Error("register user for google sign-in", "err", err)
			return nil, fmt.Errorf("sign-in failed, please try again: %w", domain.ErrUnauthorized)
		}
	}

	created, err := s.sessions.Create(ctx, u.UserID, ip, userAgent)
	if err != nil {
		slog.Error("create session for google sign-in", "user_id", u.UserID, "err", err)
		return nil, fmt.Errorf("sign-in failed, please try again: %w", domain.ErrUnauthorized)
	}
	return &SignInResult{
		UserID:        u.UserID,
		SessionToken:  created.Session.Token,
		CookieToken:   created.CookieToken,
		CookieExpires: created.Session.ExpiresAt,
	}, nil
}

func (s *service) register(ctx context.Context, payload *googleinfra.Payload) (*domain.User, error) {
	now := time.Now().UTC()
	name := payload.Name
	if name == "" {
		name = payload.Email
	}
	u := &domain.User{
		UserID:        id.New(),
		Name:          name,
		Email:         payload.Email,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if payload.Picture != "" {
		pic := payload.Picture
		u.Image = &pic
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
