package session

import (
	"context"
	"fmt"
	"time"

	"github.com/otp-auth-api/internal/domain"
	"github.com/otp-auth-api/internal/pkg/id"
	"github.com/otp-auth-api/internal/pkg/token"
)

// SessionStore is the persistence surface the session service needs.
type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// UserStore resolves the session's owning user for the verify path.
type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// TokenCodec signs and verifies the cookie representation of a session.
type TokenCodec interface {
	Encode(p domain.SessionPayload) (string, error)
	Decode(tokenStr string) (*domain.SessionPayload, bool)
}

// CreateResult bundles the stored session with the signed cookie token the
// transport layer must set.
type CreateResult struct {
	Session     *domain.Session
	CookieToken string
}

// AuthInfo is the verified identity of a request.
type AuthInfo struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      domain.UserDTO `json:"user"`
}

type Service interface {
	// Create mints a session: a 256-bit random opaque token, a 30-day store
	// row, and a signed cookie token referencing the row.
	Create(ctx context.Context, userID string, ip, userAgent *string) (*CreateResult, error)
	// Verify authenticates a cookie token. The cookie alone is not proof:
	// the session row is re-fetched and is authoritative. Every failure mode
	// collapses to domain.ErrUnauthorized.
	Verify(ctx context.Context, cookieToken string) (*AuthInfo, error)
	// Destroy deletes the session row. Idempotent: destroying an absent
	// session is not an error.
	Destroy(ctx context.Context, sessionID string) error
}

type service struct {
	sessionRepo SessionStore
	userRepo    UserStore
	codec       TokenCodec
	duration    time.Duration
}

func NewService(sessionRepo SessionStore, userRepo UserStore, codec TokenCodec, duration time.Duration) Service {
	return &service{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		codec:       codec,
		duration:    duration,
	}
}

func (s *service) Create(ctx context.Context, userID string, ip, userAgent *string) (*CreateResult, error) {
	opaque, err := token.NewSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		Token:     opaque,
		UserID:    userID,
		ExpiresAt: now.Add(s.duration),
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	cookieToken, err := s.codec.Encode(domain.SessionPayload{
		UserID:    userID,
		SessionID: sess.SessionID,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{Session: sess, CookieToken: cookieToken}, nil
}

func (s *service) Verify(ctx context.Context, cookieToken string) (*AuthInfo, error) {
	payload, ok := s.codec.Decode(cookieToken)
	if !ok {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessionRepo.Get(ctx, payload.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("session user not found: %w", domain.ErrUnauthorized)
	}
	return &AuthInfo{
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		ExpiresAt: sess.ExpiresAt,
		User:      u.DTO(),
	}, nil
}

func (s *service) Destroy(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}
