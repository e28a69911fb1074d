package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMethod is returned for a payment method with no settlement capability.
var ErrUnknownMethod = errors.New("unknown payment method")

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodPaypal     PaymentMethod = "PAYPAL"
	MethodStripe     PaymentMethod = "STRIPE"
)

// ParsePaymentMethod accepts any casing and surrounding whitespace.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodCreditCard, MethodPaypal, MethodStripe:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Settled reports whether the status is terminal. A settled payment is
// never mutated again; a retry needs a new Payment record.
func (s PaymentStatus) Settled() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// ParsePaymentStatus validates a stored status.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// Payment is one settlement attempt for a booking.
//
// Fields:
//
//	ID            – surrogate id (UUID).
//	BookingID     – booking being paid for.
//	Method        – CREDIT_CARD, PAYPAL or STRIPE; selects the capability.
//	AmountCents   – amount in cents, always positive.
//	Status        – PENDING, SUCCESS or FAILED.
//	TransactionAt – settlement time; nil while PENDING.
//	CreatedAt     – creation timestamp.
type Payment struct {
	ID            string        // payments.id
	BookingID     string        // payments.booking_id
	Method        PaymentMethod // payments.method
	AmountCents   int64         // payments.amount_cents
	Status        PaymentStatus // payments.status
	TransactionAt *time.Time    // payments.transaction_at (nullable)
	CreatedAt     time.Time     // payments.created_at
}
