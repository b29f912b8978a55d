package domain

import (
	"fmt"
	"time"
)

// MaxVerificationAttempts is the failed-guess limit after which a code is
// treated as expired.
const MaxVerificationAttempts = 5

// CodeTTL is the validity window of an issued verification code.
const CodeTTL = time.Minute

// Verification is one issued one-time-code challenge. Records are insert-only:
// a resend creates a new record and older unused records simply become
// unreachable. Scope groups records by (identifier, type, flow, step) so the
// store can fetch the most recent unused one.
type Verification struct {
	VerificationID string         `json:"id" dynamodbav:"verification_id"`
	Scope          string         `json:"-" dynamodbav:"scope"`
	Identifier     string         `json:"identifier" dynamodbav:"identifier"`
	IdentifierType IdentifierType `json:"identifier_type" dynamodbav:"identifier_type"`
	Flow           AuthFlow       `json:"flow" dynamodbav:"flow"`
	Step           AuthStep       `json:"step" dynamodbav:"step"`
	Code           string         `json:"-" dynamodbav:"code"`
	CreatedAt      time.Time      `json:"created" dynamodbav:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at" dynamodbav:"expires_at"`
	UsedAt         *time.Time     `json:"used_at,omitempty" dynamodbav:"used_at,omitempty"`
	AttemptCount   int            `json:"attempt_count" dynamodbav:"attempt_count"`
}

// VerificationScope builds the partition key grouping verification records
// for one (identifier, type, flow, step) combination.
func VerificationScope(identifier string, t IdentifierType, flow AuthFlow, step AuthStep) string {
	return fmt.Sprintf("%s#%s#%s#%s", identifier, t, flow, step)
}

// Expired reports whether the code is past its expiry at the given instant.
// A record that exhausted its attempt budget is treated as expired as well.
func (v *Verification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt) || v.AttemptCount >= MaxVerificationAttempts
}
