package jwtinfra

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/otp-auth-api/internal/domain"
)

// CookieName is the transport cookie carrying the signed session token.
const CookieName = "session_token"

// maxValidity caps the signed token lifetime independent of payload claims.
const maxValidity = 30 * 24 * time.Hour

// Claims holds the session cookie payload fields.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 session tokens with an injected symmetric
// secret. Business logic never reads the secret from the environment; the
// codec is constructed once at startup.
type Codec struct {
	secret []byte
	secure bool
}

// NewCodec builds a Codec. An empty secret is a configuration fault.
func NewCodec(secret string, secureCookies bool) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &Codec{secret: []byte(secret), secure: secureCookies}, nil
}

// Encode signs the payload into a compact session token. The registered
// expiry is the session expiry, capped at the 30-day maximum.
func (c *Codec) Encode(p domain.SessionPayload) (string, error) {
	exp := p.ExpiresAt
	if cap := time.Now().Add(maxValidity); exp.After(cap) {
		exp = cap
	}
	claims := Claims{
		UserID:    p.UserID,
		SessionID: p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode parses and verifies a session token. Any failure — bad signature,
// expired claim, malformed payload, empty input — yields (nil, false): a
// corrupt cookie is indistinguishable from an absent one.
func (c *Codec) Decode(tokenStr string) (*domain.SessionPayload, bool) {
	if tokenStr == "" {
		return nil, false
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, false
	}
	return &domain.SessionPayload{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}

// WriteCookie stores the signed token as the session cookie: HTTP-only,
// secure in production, SameSite=Lax, valid for the whole origin until the
// session expires.
func (c *Codec) WriteCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (c *Codec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie extracts the raw session token from a request, or "" when absent.
func ReadCookie(r *http.Request) string {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
