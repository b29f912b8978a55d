package verification

import (
	"errors"
	"fmt"
)

// Business-rule failures of the code lifecycle. These are expected, named
// outcomes; their messages are user-facing. Attempt exhaustion deliberately
// reuses the expiry message so callers cannot tell which limit rejected them.
var (
	ErrCodeNotFound = errors.New("verification code does not exist or has expired, please resend")
	ErrCodeExpired  = errors.New("verification code has expired, please resend")
	ErrCodeUsed     = errors.New("verification code has been used, please resend")
	ErrUserNotFound = errors.New("user does not exist")
	ErrNameRequired = errors.New("registration requires providing a name")
)

// Infrastructure failures collapse to these generic messages; the underlying
// error is logged server-side and never echoed to the caller.
var (
	ErrSendFailed = errors.New("failed to send verification code, please try again")
	// ErrDeliveryFailed is distinct from ErrSendFailed: the record was
	// persisted but the email/SMS leg failed, so a resend is the remedy.
	ErrDeliveryFailed = errors.New("failed to deliver verification code, please resend")
	ErrVerifyFailed   = errors.New("verification failed, please try again")
)

// IncorrectCodeError reports a wrong guess with the remaining attempt budget.
type IncorrectCodeError struct {
	Remaining int
}

func (e *IncorrectCodeError) Error() string {
	return fmt.Sprintf("incorrect verification code, %d attempts remaining", e.Remaining)
}
