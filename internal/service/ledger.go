package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// BookingLedger owns every write to booking status and room state.
type BookingLedger struct {
	store repository.Store
	sink  NotificationSink
	now   func() time.Time
	newID func() string
}

func NewBookingLedger(store repository.Store, sink NotificationSink) *BookingLedger {
	if sink == nil {
		sink = NopSink{}
	}
	return &BookingLedger{
		store: store,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

type CreateBookingInput struct {
	Room             model.RoomKey
	UserID           uint64
	CheckIn          time.Time
	CheckOut         time.Time
	TotalAmountCents int64
}

// CreateBooking re-checks overlap, inserts the PENDING booking and moves
// the room to BOOKED in one transaction with the room row locked. A room
// that is already BOOKED stays BOOKED; a room under maintenance rejects
// the booking with model.ErrInvalidTransition.
func (l *BookingLedger) CreateBooking(ctx context.Context, in CreateBookingInput) (_ model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingLedger.CreateBooking", trace.WithAttributes(
		attribute.String("room", in.Room.String()),
		attribute.Int64("user_id", int64(in.UserID)),
	))
	defer func() { endSpan(span, err) }()

	checkIn, checkOut, err := model.ValidateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return model.Booking{}, err
	}
	if in.TotalAmountCents < 0 {
		return model.Booking{}, fmt.Errorf("%w: total %d", ErrInvalidAmount, in.TotalAmountCents)
	}

	var created model.Booking
	err = l.store.Atomic(ctx, func(tx repository.Tx) error {
		room, err := tx.LockRoom(ctx, in.Room)
		if err != nil {
			return err
		}
		n, err := tx.CountOverlapping(ctx, in.Room, checkIn, checkOut)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: room %s, %s to %s", ErrRoomUnavailable, in.Room,
				checkIn.Format(model.DateLayout), checkOut.Format(model.DateLayout))
		}
		if room.State != model.StateBooked {
			next, err := room.State.Book()
			if err != nil {
				return err
			}
			if err := tx.UpdateRoomState(ctx, in.Room, next); err != nil {
				return err
			}
		}
		b := model.Booking{
			ID:               l.newID(),
			Room:             in.Room,
			UserID:           in.UserID,
			CheckIn:          checkIn,
			CheckOut:         checkOut,
			TotalAmountCents: in.TotalAmountCents,
			Status:           model.BookingPending,
			CreatedAt:        l.now(),
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	span.SetAttributes(attribute.String("booking_id", created.ID))
	emit(ctx, l.sink, "ledger", queue.BookingEvent(queue.KindBookingCreated, created))
	return created, nil
}

// UpdateBookingStatus applies PENDING->CONFIRMED, PENDING->CANCELLED or
// CONFIRMED->CANCELLED. Cancelling frees the range at once and checks the
// room out when no other active booking holds it.
func (l *BookingLedger) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) (_ model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingLedger.UpdateBookingStatus", trace.WithAttributes(
		attribute.String("booking_id", id),
		attribute.String("status", string(status)),
	))
	defer func() { endSpan(span, err) }()

	if _, err := model.ParseBookingStatus(string(status)); err != nil {
		return model.Booking{}, fmt.Errorf("%w: %v", model.ErrInvalidBookingTransition, err)
	}

	var updated model.Booking
	err = l.store.Atomic(ctx, func(tx repository.Tx) error {
		// Lock order is room, then booking.
		current, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		room, err := tx.LockRoom(ctx, current.Room)
		if err != nil {
			return err
		}
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidBookingTransition, b.Status, status)
		}
		if err := tx.UpdateBookingStatus(ctx, id, status); err != nil {
			return err
		}
		if status == model.BookingCancelled && room.State == model.StateBooked {
			others, err := tx.CountActiveForRoom(ctx, room.Key, id)
			if err != nil {
				return err
			}
			if others == 0 {
				next, err := room.State.CheckOut()
				if err != nil {
					return err
				}
				if err := tx.UpdateRoomState(ctx, room.Key, next); err != nil {
					return err
				}
			}
		}
		b.Status = status
		updated = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	kind := queue.KindBookingConfirmed
	if status == model.BookingCancelled {
		kind = queue.KindBookingCancelled
	}
	emit(ctx, l.sink, "ledger", queue.BookingEvent(kind, updated))
	return updated, nil
}

func (l *BookingLedger) ConfirmBooking(ctx context.Context, id string) (model.Booking, error) {
	return l.UpdateBookingStatus(ctx, id, model.BookingConfirmed)
}

// CancelBooking fails with repository.ErrBookingNotFound for an unknown id.
func (l *BookingLedger) CancelBooking(ctx context.Context, id string) (model.Booking, error) {
	return l.UpdateBookingStatus(ctx, id, model.BookingCancelled)
}

func (l *BookingLedger) GetBookingByID(ctx context.Context, id string) (model.Booking, error) {
	return l.store.GetBooking(ctx, id)
}

// GetBookingsForRoom returns every booking of the room, cancelled ones
// included, ordered by check-in.
func (l *BookingLedger) GetBookingsForRoom(ctx context.Context, key model.RoomKey) ([]model.Booking, error) {
	if _, err := l.store.GetRoom(ctx, key); err != nil {
		return nil, err
	}
	return l.store.ListBookingsByRoom(ctx, key)
}

func (l *BookingLedger) GetBookingsForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return l.store.ListBookingsByUser(ctx, userID)
}
