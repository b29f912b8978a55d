package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/otp-auth-api/internal/domain"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func newCodec(t *testing.T) *jwtinfra.Codec {
	t.Helper()
	codec, err := jwtinfra.NewCodec("test-secret-at-least-32-bytes-long!", false)
	require.NoError(t, err)
	return codec
}

// --- Create ---

func TestCreate_MintsSessionAndCookieToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	svc := NewService(ss, &mockUserStore{}, newCodec(t), 30*24*time.Hour)
	ip := "203.0.113.9"
	res, err := svc.Create(context.Background(), "u1", &ip, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.SessionID)
	assert.Len(t, res.Session.Token, 64) // 32 random bytes, hex encoded
	assert.Equal(t, "u1", res.Session.UserID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), res.Session.ExpiresAt, 5*time.Second)
	assert.NotEmpty(t, res.CookieToken)
	require.NotNil(t, res.Session.IPAddress)
	assert.Equal(t, ip, *res.Session.IPAddress)
}

func TestCreate_StoreFailure(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := NewService(ss, &mockUserStore{}, newCodec(t), time.Hour)
	_, err := svc.Create(context.Background(), "u1", nil, nil)
	require.Error(t, err)
}

// --- Verify ---

func TestVerify_RoundTrip(t *testing.T) {
	ss := &mockSessionStore{}
	us := &mockUserStore{}
	codec := newCodec(t)
	svc := NewService(ss, us, codec, time.Hour)

	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	created, err := svc.Create(context.Background(), "u1", nil, nil)
	require.NoError(t, err)

	ss.On("Get", mock.Anything, created.Session.SessionID).Return(created.Session, nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Name: "Ada", Email: "a@b.com"}, nil)

	info, err := svc.Verify(context.Background(), created.CookieToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, created.Session.SessionID, info.SessionID)
	assert.Equal(t, "Ada", info.User.Name)
}

func TestVerify_TamperedToken(t *testing.T) {
	ss := &mockSessionStore{}
	codec := newCodec(t)
	svc := NewService(ss, &mockUserStore{}, codec, time.Hour)

	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	created, err := svc.Create(context.Background(), "u1", nil, nil)
	require.NoError(t, err)

	tampered := created.CookieToken[:len(created.CookieToken)-2] + "xx"
	_, err = svc.Verify(context.Background(), tampered)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	// A forged cookie must never reach the store.
	ss.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVerify_SessionRowGone(t *testing.T) {
	ss := &mockSessionStore{}
	codec := newCodec(t)
	svc := NewService(ss, &mockUserStore{}, codec, time.Hour)

	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	created, err := svc.Create(context.Background(), "u1", nil, nil)
	require.NoError(t, err)

	// The cookie still validates, but the row was destroyed (logout).
	ss.ExpectedCalls = nil
	ss.On("Get", mock.Anything, created.Session.SessionID).Return(nil, domain.ErrNotFound)

	_, err = svc.Verify(context.Background(), created.CookieToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerify_ExpiredRow(t *testing.T) {
	ss := &mockSessionStore{}
	us := &mockUserStore{}
	codec := newCodec(t)
	svc := NewService(ss, us, codec, time.Hour)

	cookieToken, err := codec.Encode(domain.SessionPayload{
		UserID:    "u1",
		SessionID: "s1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	_, err = svc.Verify(context.Background(), cookieToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	us.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// --- Destroy ---

func TestDestroy_DelegatesToStore(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Delete", mock.Anything, "s1").Return(nil)

	svc := NewService(ss, &mockUserStore{}, newCodec(t), time.Hour)
	require.NoError(t, svc.Destroy(context.Background(), "s1"))
	ss.AssertExpectations(t)
}
