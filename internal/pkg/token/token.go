package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewSessionToken generates a cryptographically random 64-character hex token
// (256 bits of entropy) used as the opaque session identifier.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// codeSpan is the size of the 6-digit code range [100000, 999999].
var codeSpan = big.NewInt(900000)

// NewVerificationCode draws a 6-digit code uniformly from [100000, 999999].
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
