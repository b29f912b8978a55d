package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/otp-auth-api/internal/domain"
)

// phonePattern matches mainland mobile numbers: digit 1, digit 2 in 3–9,
// nine trailing digits. This is not a general E.164 validator.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// codePattern matches exactly six ASCII digits.
var codePattern = regexp.MustCompile(`^\d{6}$`)

// v is the package-level singleton validator. Custom type registrations are
// made during init(), before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("cn_mobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("otp_code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email checks standard syntactic email format.
func Email(s string) error {
	if s == "" {
		return fmt.Errorf("please enter email address: %w", domain.ErrBadRequest)
	}
	if v.Var(s, "email") != nil {
		return fmt.Errorf("please enter a valid email address: %w", domain.ErrBadRequest)
	}
	return nil
}

// Phone checks the supported mobile-number pattern.
func Phone(s string) error {
	if s == "" {
		return fmt.Errorf("please enter phone number: %w", domain.ErrBadRequest)
	}
	if !phonePattern.MatchString(s) {
		return fmt.Errorf("please enter a valid phone number: %w", domain.ErrBadRequest)
	}
	return nil
}

// Identifier dispatches to Email or Phone based on the identifier type.
func Identifier(s string, t domain.IdentifierType) error {
	switch t {
	case domain.IdentifierEmail:
		return Email(s)
	case domain.IdentifierPhone:
		return Phone(s)
	default:
		return fmt.Errorf("unsupported identifier type %q: %w", t, domain.ErrBadRequest)
	}
}

// Name checks a display name: trimmed, 2–50 characters. Length counts
// runes, not bytes, so multi-byte names measure correctly.
func Name(s string) error {
	trimmed := strings.TrimSpace(s)
	if n := utf8.RuneCountInString(trimmed); n < 2 || n > 50 {
		return fmt.Errorf("name length should be between 2-50 characters: %w", domain.ErrBadRequest)
	}
	return nil
}

// Code checks a verification code: exactly six ASCII digits.
func Code(s string) error {
	if !codePattern.MatchString(s) {
		return fmt.Errorf("verification code must be 6 digits: %w", domain.ErrBadRequest)
	}
	return nil
}
