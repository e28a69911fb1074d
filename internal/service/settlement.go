package service

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Outcome is the result of one settlement attempt against a capability.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeDeclined
	OutcomeTransientError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDeclined:
		return "declined"
	case OutcomeTransientError:
		return "transient_error"
	}
	return "unknown"
}

// Capability settles an amount through one payment method. A returned
// error is treated like OutcomeTransientError.
type Capability interface {
	Process(ctx context.Context, amountCents int64) (Outcome, error)
}

type CapabilityFunc func(ctx context.Context, amountCents int64) (Outcome, error)

func (f CapabilityFunc) Process(ctx context.Context, amountCents int64) (Outcome, error) {
	return f(ctx, amountCents)
}

// Capabilities maps each payment method to its settlement capability.
type Capabilities map[model.PaymentMethod]Capability

func stubCapability(ctx context.Context, amountCents int64) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeTransientError, err
	}
	if amountCents > 0 {
		return OutcomeSuccess, nil
	}
	return OutcomeDeclined, nil
}

var (
	CreditCard Capability = CapabilityFunc(stubCapability)
	Paypal     Capability = CapabilityFunc(stubCapability)
	Stripe     Capability = CapabilityFunc(stubCapability)
)

func DefaultCapabilities() Capabilities {
	return Capabilities{
		model.MethodCreditCard: CreditCard,
		model.MethodPaypal:     Paypal,
		model.MethodStripe:     Stripe,
	}
}
