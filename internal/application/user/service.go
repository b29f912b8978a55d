package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otp-auth-api/internal/domain"
	"github.com/otp-auth-api/internal/pkg/id"
	"github.com/otp-auth-api/internal/pkg/validate"
)

// placeholderEmailSuffix synthesizes an email for phone-only sign-ups. The
// users table mandates a unique email value, so phone registrations store
// "<phone>@phone.placeholder" until the user links a real address.
const placeholderEmailSuffix = "@phone.placeholder"

// ExistsResult is the outward shape of an identifier existence check. It
// carries no error: lookup failures are reported as exists=false so callers
// can never distinguish "not found" from "lookup failed".
type ExistsResult struct {
	Exists     bool                  `json:"exists"`
	Identifier string                `json:"identifier"`
	Type       domain.IdentifierType `json:"type"`
}

// UserStore is the persistence surface the user service needs.
type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// AvatarStore stores profile images.
type AvatarStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
}

type Service interface {
	// Exists checks whether an identifier belongs to a user. It performs no
	// side effects and never surfaces an error.
	Exists(ctx context.Context, identifier string, t domain.IdentifierType) ExistsResult
	// Register creates a user from a verified identifier.
	Register(ctx context.Context, identifier string, t domain.IdentifierType, name string) (*domain.User, error)
	// UpdateProfile renames the account. Owner only; enforced by the caller
	// passing the authenticated user's ID.
	UpdateProfile(ctx context.Context, userID, name string) error
	// UploadAvatar stores a profile image and records its URL.
	UploadAvatar(ctx context.Context, userID, filename, b64Data string) (string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	userRepo UserStore
	avatars  AvatarStore
}

func NewService(userRepo UserStore, avatars AvatarStore) Service {
	return &service{userRepo: userRepo, avatars: avatars}
}

func (s *service) Exists(ctx context.Context, identifier string, t domain.IdentifierType) ExistsResult {
	res := ExistsResult{Identifier: identifier, Type: t}
	if !t.Valid() {
		return res
	}
	u, err := s.userRepo.GetByIdentifier(ctx, identifier, t)
	if err != nil {
		// Store faults and true misses produce the same shape. Log and move on.
		slog.Debug("identifier lookup did not resolve", "type", t, "err", err)
		return res
	}
	res.Exists = u != nil
	return res
}

func (s *service) Register(ctx context.Context, identifier string, t domain.IdentifierType, name string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		UserID:    id.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch t {
	case domain.IdentifierEmail:
		u.Email = identifier
		u.EmailVerified = true
	case domain.IdentifierPhone:
		phone := identifier
		u.Email = identifier + placeholderEmailSuffix
		u.PhoneNumber = &phone
		u.PhoneNumberVerified = true
	default:
		return nil, fmt.Errorf("unsupported identifier type %q: %w", t, domain.ErrBadRequest)
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID, name string) error {
	if err := validate.Name(name); err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{
		"name": strings.TrimSpace(name),
	})
}

func (s *service) UploadAvatar(ctx context.Context, userID, filename, b64Data string) (string, error) {
	key := fmt.Sprintf("avatars/%s/%s", userID, sanitizeFilename(filename))
	url, err := s.avatars.UploadBase64(ctx, key, b64Data)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"image": url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.Get(ctx, userID)
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "avatar"
	}
	return name
}
