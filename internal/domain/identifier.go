package domain

// IdentifierType tags a login identifier as an email address or a phone number.
type IdentifierType string

const (
	IdentifierEmail IdentifierType = "email"
	IdentifierPhone IdentifierType = "phone"
)

// Valid reports whether t is one of the two supported identifier kinds.
func (t IdentifierType) Valid() bool {
	return t == IdentifierEmail || t == IdentifierPhone
}

// AuthFlow selects which account-resolution branch a verification belongs to.
type AuthFlow string

const (
	FlowSignIn AuthFlow = "sign_in"
	FlowSignUp AuthFlow = "sign_up"
)

func (f AuthFlow) Valid() bool {
	return f == FlowSignIn || f == FlowSignUp
}

// AuthStep scopes a verification to the stage that requested it.
type AuthStep string

const (
	StepDefault  AuthStep = "default"
	StepRegister AuthStep = "register"
)

func (s AuthStep) Valid() bool {
	return s == StepDefault || s == StepRegister
}
