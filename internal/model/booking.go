package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDateRange is returned when check-in is not strictly before check-out.
	ErrInvalidDateRange = errors.New("check-in must be before check-out")
	// ErrInvalidBookingTransition is returned for a status change the
	// booking lifecycle does not allow.
	ErrInvalidBookingTransition = errors.New("invalid booking status transition")
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled},
	BookingCancelled: {},
}

// ParseBookingStatus validates a status read from storage or a request.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if _, ok := bookingTransitions[st]; !ok {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

// Active reports whether a booking in this status occupies its date range.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// CanTransitionTo reports whether the lifecycle allows s -> to.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Booking is a reservation of one room for [CheckIn, CheckOut).
//
// Fields:
//
//	ID               – surrogate id (UUID) generated on creation.
//	Room             – the booked room.
//	UserID           – opaque id of the requesting user.
//	CheckIn          – first night, UTC midnight.
//	CheckOut         – departure day, exclusive.
//	TotalAmountCents – total price in cents, supplied by the caller.
//	Status           – PENDING, CONFIRMED or CANCELLED.
//	CreatedAt        – creation timestamp.
type Booking struct {
	ID               string        // bookings.id
	Room             RoomKey       // bookings.hotel_id, bookings.room_id
	UserID           uint64        // bookings.user_id
	CheckIn          time.Time     // bookings.check_in
	CheckOut         time.Time     // bookings.check_out
	TotalAmountCents int64         // bookings.total_amount_cents
	Status           BookingStatus // bookings.status
	CreatedAt        time.Time     // bookings.created_at
}

// Nights is the number of nights covered by the booking.
func (b Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// Overlaps reports whether [a1, a2) and [b1, b2) intersect. Ranges that
// only touch at a boundary do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ValidateRange normalizes both ends to calendar dates and checks ordering.
func ValidateRange(checkIn, checkOut time.Time) (time.Time, time.Time, error) {
	in, out := Date(checkIn), Date(checkOut)
	if !in.Before(out) {
		return in, out, fmt.Errorf("%w: %s >= %s", ErrInvalidDateRange, in.Format(DateLayout), out.Format(DateLayout))
	}
	return in, out, nil
}
