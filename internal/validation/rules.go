// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/hex"
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates that a string is a plausible email address.
type Email struct{}

// Validate checks the value against the email pattern.
func (e Email) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_email", "email must be a string")
	}
	if !emailRegex.MatchString(s) {
		return validation.NewError("validation_email", "must be a valid email address")
	}
	return nil
}

// HexSignature validates that a string is a hex-encoded digest of the expected
// byte length (e.g., 32 for SHA-256).
type HexSignature struct {
	ByteLen int
}

// Validate checks the value decodes as hex with the configured length.
func (h HexSignature) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_hex_signature", "signature must be a string")
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_hex_signature", "signature must be hex encoded")
	}
	if h.ByteLen > 0 && len(decoded) != h.ByteLen {
		return validation.NewError("validation_hex_signature", "signature has wrong length")
	}
	return nil
}
