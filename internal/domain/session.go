package domain

import "time"

// Session is a server-recorded authenticated period. Token is a 256-bit
// random hex value generated server-side; the cookie carries a signed
// SessionPayload referencing the row, not the token itself.
type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	IPAddress *string   `json:"ip_address,omitempty" dynamodbav:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" dynamodbav:"user_agent"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionPayload is the claim set embedded in the signed session cookie.
type SessionPayload struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}
