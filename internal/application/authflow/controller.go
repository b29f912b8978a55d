package authflow

import (
	"context"
	"errors"
	"sync"

	"github.com/otp-auth-api/internal/application/user"
	"github.com/otp-auth-api/internal/application/verification"
	"github.com/otp-auth-api/internal/domain"
)

var (
	// ErrTransitionPending rejects a submission while another transition is
	// still in flight, mirroring the disabled submit control in the UI.
	ErrTransitionPending = errors.New("another operation is in progress")
	// ErrInvalidTransition rejects an operation the current step does not offer.
	ErrInvalidTransition = errors.New("operation not available in the current step")
)

// IdentifierChecker answers whether an identifier has an account.
type IdentifierChecker interface {
	Exists(ctx context.Context, identifier string, t domain.IdentifierType) user.ExistsResult
}

// CodeSender issues verification codes.
type CodeSender interface {
	SendCode(ctx context.Context, in verification.SendCodeInput) (*verification.SendCodeResult, error)
}

// CodeVerifier redeems verification codes.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, in verification.VerifyCodeInput) (*verification.VerifyCodeResult, error)
}

// Controller drives one authentication flow instance through its steps.
// It starts in Default, returns there after every completed verification or
// back navigation, and rejects concurrent submissions while a transition is
// pending. No state survives Reset.
type Controller struct {
	mu      sync.Mutex
	state   State
	pending bool

	users    IdentifierChecker
	sender   CodeSender
	verifier CodeVerifier
}

func NewController(users IdentifierChecker, sender CodeSender, verifier CodeVerifier) *Controller {
	return &Controller{
		state:    Default{},
		users:    users,
		sender:   sender,
		verifier: verifier,
	}
}

// State returns the current step.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// begin claims the pending slot and snapshots the current state.
func (c *Controller) begin() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return nil, ErrTransitionPending
	}
	c.pending = true
	return c.state, nil
}

// finish releases the pending slot, moving to next when it is non-nil.
func (c *Controller) finish(next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if next != nil {
		c.state = next
	}
}

// SubmitIdentifier handles the first form: an unknown identifier moves to
// Register, a known one gets a sign-in code and moves to the matching
// verify step.
func (c *Controller) SubmitIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (State, error) {
	cur, err := c.begin()
	if err != nil {
		return c.State(), err
	}

	switch cur.(type) {
	case Default:
	default:
		c.finish(nil)
		return c.State(), ErrInvalidTransition
	}

	res := c.users.Exists(ctx, identifier, t)
	if !res.Exists {
		next := Register{Identifier: identifier, IdentifierType: t}
		c.finish(next)
		return next, nil
	}

	if _, err := c.sender.SendCode(ctx, verification.SendCodeInput{
		Identifier: identifier,
		Type:       t,
		Flow:       domain.FlowSignIn,
		Step:       domain.StepDefault,
	}); err != nil {
		c.finish(nil)
		return c.State(), err
	}

	next := verifyStateFor(t, identifier, domain.FlowSignIn, "")
	c.finish(next)
	return next, nil
}

// SubmitName handles the registration form: sends a sign-up code for the
// collected identifier and moves to the matching verify step.
func (c *Controller) SubmitName(ctx context.Context, name string) (State, error) {
	cur, err := c.begin()
	if err != nil {
		return c.State(), err
	}

	reg, ok := cur.(Register)
	if !ok {
		c.finish(nil)
		return c.State(), ErrInvalidTransition
	}

	if _, err := c.sender.SendCode(ctx, verification.SendCodeInput{
		Identifier: reg.Identifier,
		Type:       reg.IdentifierType,
		Flow:       domain.FlowSignUp,
		Step:       domain.StepRegister,
		Name:       name,
	}); err != nil {
		c.finish(nil)
		return c.State(), err
	}

	next := verifyStateFor(reg.IdentifierType, reg.Identifier, domain.FlowSignUp, name)
	c.finish(next)
	return next, nil
}

// SubmitCode redeems the code for the active verify step. Success returns to
// Default; failure keeps the current step so the user can retry or resend.
func (c *Controller) SubmitCode(ctx context.Context, code string) (*verification.VerifyCodeResult, State, error) {
	cur, err := c.begin()
	if err != nil {
		return nil, c.State(), err
	}

	var in verification.VerifyCodeInput
	switch st := cur.(type) {
	case EmailVerify:
		in = verifyInput(st.Identifier, domain.IdentifierEmail, st.Flow, st.Name)
	case PhoneVerify:
		in = verifyInput(st.Identifier, domain.IdentifierPhone, st.Flow, st.Name)
	default:
		c.finish(nil)
		return nil, c.State(), ErrInvalidTransition
	}
	in.Code = code

	res, err := c.verifier.VerifyCode(ctx, in)
	if err != nil {
		c.finish(nil)
		return nil, c.State(), err
	}

	c.finish(Default{})
	return res, Default{}, nil
}

// Back returns to Default from any step.
func (c *Controller) Back() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return c.state, ErrTransitionPending
	}
	c.state = Default{}
	return c.state, nil
}

// ChooseWallets moves from Default to the wallet picker.
func (c *Controller) ChooseWallets() (State, error) {
	return c.choose(Wallets{})
}

// ChoosePasskey moves from Default to the passkey prompt.
func (c *Controller) ChoosePasskey() (State, error) {
	return c.choose(Passkey{})
}

func (c *Controller) choose(next State) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return c.state, ErrTransitionPending
	}
	if _, ok := c.state.(Default); !ok {
		return c.state, ErrInvalidTransition
	}
	c.state = next
	return c.state, nil
}

// Reset discards all flow state, as closing and reopening the dialog does.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Default{}
	c.pending = false
}

func verifyStateFor(t domain.IdentifierType, identifier string, flow domain.AuthFlow, name string) State {
	if t == domain.IdentifierPhone {
		return PhoneVerify{Identifier: identifier, Flow: flow, Name: name}
	}
	return EmailVerify{Identifier: identifier, Flow: flow, Name: name}
}

func verifyInput(identifier string, t domain.IdentifierType, flow domain.AuthFlow, name string) verification.VerifyCodeInput {
	step := domain.StepDefault
	if flow == domain.FlowSignUp {
		step = domain.StepRegister
	}
	return verification.VerifyCodeInput{
		Identifier: identifier,
		Type:       t,
		Flow:       flow,
		Step:       step,
		Name:       name,
	}
}
