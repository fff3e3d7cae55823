package service

import "errors"

// Sentinel errors surfaced by the service layer. Anything else coming out
// of a service call is a storage failure wrapped with context; the whole
// command transaction rolls back in that case, so callers may retry.
var (
	// ErrNotFound is returned when a short code does not exist, has been
	// soft deleted, or belongs to another user on an owner-scoped path.
	ErrNotFound = errors.New("item not found")

	// ErrCodeExhausted is returned when the generator could not produce a
	// free short code within the configured attempt budget. It signals a
	// misconfigured alphabet/length far more often than genuine exhaustion
	// and must reach the operator, not be retried silently.
	ErrCodeExhausted = errors.New("exhausted short code generation attempts")
)

// ValidationError reports malformed command arguments. The message is safe
// to show to the end user.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
