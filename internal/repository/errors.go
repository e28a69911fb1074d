// Package repository defines the storage contract of the reservation
// engine and its MySQL and in-memory implementations. The sentinel errors
// below let the service and handler layers tell failure modes apart with
// errors.Is; handlers translate them into HTTP statuses.
package repository

import "errors"

// Lookup failures.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// ErrRoomExists is returned when a room with the same (hotel, room) key
// is already stored.
var ErrRoomExists = errors.New("room already exists")

// ErrAlreadySettled is returned by a conditional settlement update when
// the payment left PENDING before the update ran.
var ErrAlreadySettled = errors.New("payment already settled")

// ErrForbidden is returned when the caller accesses a booking or payment
// that belongs to another user. Handlers translate it into a 403.
var ErrForbidden = errors.New("forbidden")
