package sale

import "errors"

var (
	ErrDosageNotFound       = errors.New("dosage not found")
	ErrPaymentCreateFailed  = errors.New("failed to create payment")
	ErrPaymentInProgress    = errors.New("payment for this idempotency key is still being created")
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for another dosage")
	ErrInvalidNotification  = errors.New("invalid payment notification")
)

// CreateError is returned when the processor refused or failed to create a
// charge. Message is the processor's own text when it sent one.
type CreateError struct {
	Message string
	Err     error
}

func (e *CreateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrPaymentCreateFailed.Error()
}

func (e *CreateError) Unwrap() []error {
	return []error{ErrPaymentCreateFailed, e.Err}
}
