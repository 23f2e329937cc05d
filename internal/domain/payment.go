package domain

import (
	"fmt"
	"regexp"
)

// PaymentStatus is the state of a payment session. PENDING is the only
// non-terminal state; there are no transitions out of a terminal state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentTimedOut  PaymentStatus = "TIMED_OUT"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentTimedOut
}

// PaymentSession links an initiated charge to its eventual outcome. The
// correlation id is issued by the gateway and used for status queries.
type PaymentSession struct {
	CorrelationID string        `json:"checkoutRequestId"`
	PhoneNumber   string        `json:"phoneNumber"`
	Status        PaymentStatus `json:"status"`
}

var phonePattern = regexp.MustCompile(`^254[0-9]{9}$`)

// ValidatePhoneNumber checks the M-Pesa subscriber format (254 followed by
// nine digits). Initiation must not be attempted with an invalid number.
func ValidatePhoneNumber(phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("phone number %q must match format 254XXXXXXXXX", phone)
	}
	return nil
}
