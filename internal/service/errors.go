// Package service is the reservation-consistency engine: availability
// checks, the booking ledger that turns an availability decision into a
// durable booking atomically, and the payment processor that settles
// payments through pluggable capabilities.
package service

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hotel-reservation/internal/repository"
)

var (
	// ErrRoomUnavailable is a conflict: an active booking overlaps the
	// requested range. Retrying the identical request will not help.
	ErrRoomUnavailable = errors.New("room unavailable for the requested dates")
	// ErrInvalidAmount rejects non-positive payment amounts and negative
	// booking totals.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBookingNotPayable is returned when paying for a cancelled booking.
	ErrBookingNotPayable = errors.New("booking is cancelled")
	// ErrMethodMismatch is returned when Settle names a method other than
	// the one recorded on the payment.
	ErrMethodMismatch = errors.New("payment method does not match the payment record")
	// ErrSettlementUnavailable wraps a transient capability failure. The
	// payment stays PENDING and the caller may retry Settle.
	ErrSettlementUnavailable = errors.New("settlement capability unavailable")
)

// ErrAlreadySettled guards against settling a payment twice.
var ErrAlreadySettled = repository.ErrAlreadySettled

var tracer = otel.Tracer("github.com/iliyamo/hotel-reservation/internal/service")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
