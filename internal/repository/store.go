package repository

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Reader holds the lock-free queries. Each call sees committed data only.
type Reader interface {
	GetRoom(ctx context.Context, key model.RoomKey) (model.Room, error)
	ListRooms(ctx context.Context, hotelID uint64) ([]model.Room, error)

	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListBookingsByRoom(ctx context.Context, key model.RoomKey) ([]model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	// CountOverlapping counts PENDING/CONFIRMED bookings of the room whose
	// range intersects [checkIn, checkOut).
	CountOverlapping(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error)

	GetPayment(ctx context.Context, id string) (model.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error)
}

// Tx is the write side of the store, valid only inside Atomic. Lock*
// methods hold their row until the surrounding Atomic call returns.
// Callers lock a room before any of its bookings.
type Tx interface {
	InsertRoom(ctx context.Context, r model.Room) error
	LockRoom(ctx context.Context, key model.RoomKey) (model.Room, error)
	UpdateRoomState(ctx context.Context, key model.RoomKey, state model.RoomState) error

	CountOverlapping(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error)
	// CountActiveForRoom counts PENDING/CONFIRMED bookings of the room
	// other than excludeID.
	CountActiveForRoom(ctx context.Context, key model.RoomKey, excludeID string) (int, error)
	InsertBooking(ctx context.Context, b model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	LockBooking(ctx context.Context, id string) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error

	InsertPayment(ctx context.Context, p model.Payment) error
	// SettlePayment moves a PENDING payment to status and stamps at. It
	// fails with ErrAlreadySettled if the payment is no longer PENDING.
	SettlePayment(ctx context.Context, id string, status model.PaymentStatus, at time.Time) error
}

// Store is the durable keyed storage used by the engine. Atomic runs fn in
// a single transaction: all of fn's writes commit together if fn returns
// nil, and none of them do otherwise. fn may be invoked more than once
// when the backend retries a serialization conflict, so it must not have
// side effects outside tx.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
