package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/otp-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhone_AcceptsMobileNumbers(t *testing.T) {
	for _, s := range []string{"13900001111", "15012345678", "19999999999"} {
		assert.NoError(t, Phone(s), s)
	}
}

func TestPhone_RejectsInvalidNumbers(t *testing.T) {
	cases := []string{
		"",
		"1390000111",   // ten digits
		"139000011112", // twelve digits
		"23900001111",  // wrong leading digit
		"12900001111",  // second digit out of range
		"1390000111a",
		"+8613900001111", // country prefix not accepted
	}
	for _, s := range cases {
		err := Phone(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), s)
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("a@b.com"))
	assert.Error(t, Email(""))
	assert.Error(t, Email("not-an-email"))
	assert.True(t, errors.Is(Email("not-an-email"), domain.ErrBadRequest))
}

func TestIdentifier_DispatchesByType(t *testing.T) {
	assert.NoError(t, Identifier("a@b.com", domain.IdentifierEmail))
	assert.NoError(t, Identifier("13900001111", domain.IdentifierPhone))
	assert.Error(t, Identifier("13900001111", domain.IdentifierEmail))
	assert.Error(t, Identifier("a@b.com", domain.IdentifierPhone))
	assert.Error(t, Identifier("a@b.com", domain.IdentifierType("fax")))
}

func TestName_Bounds(t *testing.T) {
	assert.Error(t, Name("A"))
	assert.NoError(t, Name("Al"))
	assert.NoError(t, Name("  Al  ")) // trimmed before measuring
	assert.Error(t, Name("  A  "))
	assert.NoError(t, Name(strings.Repeat("a", 50)))
	assert.Error(t, Name(strings.Repeat("a", 51)))
}

func TestName_CountsRunesNotBytes(t *testing.T) {
	assert.NoError(t, Name("李雷"))
	assert.Error(t, Name("李"))
}

func TestCode(t *testing.T) {
	assert.NoError(t, Code("123456"))
	assert.Error(t, Code("12345"))
	assert.Error(t, Code("1234567"))
	assert.Error(t, Code("12345a"))
	assert.Error(t, Code(""))
}

func TestStruct_UsesCustomTags(t *testing.T) {
	type req struct {
		Phone string `validate:"required,cn_mobile"`
		Code  string `validate:"required,otp_code"`
	}
	assert.NoError(t, Struct(req{Phone: "13900001111", Code: "123456"}))
	assert.Error(t, Struct(req{Phone: "23900001111", Code: "123456"}))
	assert.Error(t, Struct(req{Phone: "13900001111", Code: "abc123"}))
}
