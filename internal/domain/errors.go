package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoCredential      = errors.New("no credential available")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrMalformedResponse = errors.New("invalid response format from server")
	ErrPaymentTimeout    = errors.New("payment timeout")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrPaymentInProgress = errors.New("payment already in progress")
)

// RemoteError reports a non-success HTTP status from an upstream endpoint,
// carrying the structured message from the response body when one was present.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// NewRemoteError builds a RemoteError, falling back to the generic message
// when the upstream body carried none.
func NewRemoteError(status int, message string) *RemoteError {
	if message == "" {
		message = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &RemoteError{Status: status, Message: message}
}

// PaymentInitError reports a failed payment initiation: network failure,
// a rejected charge, or a response without a correlation id.
type PaymentInitError struct {
	Message string
	Err     error
}

func (e *PaymentInitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Payment failed"
}

func (e *PaymentInitError) Unwrap() error {
	return e.Err
}
