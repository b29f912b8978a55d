package authflow

import "github.com/otp-auth-api/internal/domain"

// State is the closed set of steps the authentication flow can be in.
// It is a tagged variant: only the types in this package implement it, and
// every transition site switches over all of them. Adding a step means
// extending this set and every switch, which is intentional.
type State interface {
	// StepName identifies the variant for logging and API payloads.
	StepName() string

	authState()
}

// Default is both the initial state and the terminal reached after a
// successful verification or an explicit back navigation.
type Default struct{}

// Wallets is the wallet-connection method picker.
type Wallets struct{}

// Passkey is the passkey prompt step.
type Passkey struct{}

// Register collects a name for an identifier that has no account yet.
type Register struct {
	Identifier     string
	IdentifierType domain.IdentifierType
}

// EmailVerify awaits a code sent to an email identifier.
type EmailVerify struct {
	Identifier string
	Flow       domain.AuthFlow
	Name       string
}

// PhoneVerify awaits a code sent to a phone identifier.
type PhoneVerify struct {
	Identifier string
	Flow       domain.AuthFlow
	Name       string
}

func (Default) StepName() string     { return "default" }
func (Wallets) StepName() string     { return "wallets" }
func (Passkey) StepName() string     { return "passkey" }
func (Register) StepName() string    { return "register" }
func (EmailVerify) StepName() string { return "email" }
func (PhoneVerify) StepName() string { return "phone" }

func (Default) authState()     {}
func (Wallets) authState()     {}
func (Passkey) authState()     {}
func (Register) authState()    {}
func (EmailVerify) authState() {}
func (PhoneVerify) authState() {}
