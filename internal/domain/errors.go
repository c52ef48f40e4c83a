package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrStartSnapNotFound is returned when a StartSnap cannot be located.
	ErrStartSnapNotFound = errors.New("startsnap not found")
	// ErrVibeLogNotFound is returned when a vibe log entry cannot be located.
	ErrVibeLogNotFound = errors.New("vibe log not found")
	// ErrFeedbackNotFound is returned when a feedback entry cannot be located.
	ErrFeedbackNotFound = errors.New("feedback not found")
	// ErrProfileNotFound is returned when no profile exists for the user or username.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrForbidden is returned when the caller does not own the target row.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when an operation requires a signed-in caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrSelfSupport is returned when a creator tries to support their own StartSnap.
	ErrSelfSupport = errors.New("creators cannot support their own startsnap")
	// ErrUsernameTaken is returned when another profile already holds the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNoWallet is returned when a tip targets a creator without a connected wallet.
	ErrNoWallet = errors.New("creator has no wallet connected")
	// ErrTipExists is returned when a tip for the same transaction was already recorded.
	ErrTipExists = errors.New("tip already recorded")
	// ErrSelfTip is returned when a creator tries to tip their own StartSnap.
	ErrSelfTip = errors.New("creators cannot tip their own startsnap")
	// ErrTipInFlight is returned while another tip from the same wallet awaits confirmation.
	ErrTipInFlight = errors.New("a tip from this wallet is already being processed")
)

// ValidationError reports per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldError builds a ValidationError for a single field.
func FieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type validator struct {
	fields map[string]string
}

func (v *validator) add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
