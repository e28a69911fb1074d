// Package queue defines the lifecycle events emitted by the reservation
// engine and the RabbitMQ plumbing that carries them to the notifier.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// EventKind doubles as the topic routing key.
type EventKind string

const (
	KindBookingCreated   EventKind = "booking.created"
	KindBookingConfirmed EventKind = "booking.confirmed"
	KindBookingCancelled EventKind = "booking.cancelled"
	KindPaymentSettled   EventKind = "payment.settled"
)

// Event is the single payload published for every lifecycle change. It
// carries enough for a notifier to render a message without querying the
// primary database.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	UserID      uint64    `json:"user_id"`
	BookingID   string    `json:"booking_id"`
	PaymentID   string    `json:"payment_id,omitempty"`
	HotelID     uint64    `json:"hotel_id,omitempty"`
	RoomID      uint64    `json:"room_id,omitempty"`
	CheckIn     string    `json:"check_in,omitempty"`
	CheckOut    string    `json:"check_out,omitempty"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	OccurredAt  string    `json:"occurred_at"`
}

func (e Event) RoutingKey() string { return string(e.Kind) }

func newEvent(kind EventKind) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// BookingEvent builds a booking.* event. kind must be one of the booking kinds.
func BookingEvent(kind EventKind, b model.Booking) Event {
	ev := newEvent(kind)
	ev.UserID = b.UserID
	ev.BookingID = b.ID
	ev.HotelID = b.Room.HotelID
	ev.RoomID = b.Room.RoomID
	ev.CheckIn = b.CheckIn.Format(model.DateLayout)
	ev.CheckOut = b.CheckOut.Format(model.DateLayout)
	ev.Status = string(b.Status)
	ev.AmountCents = b.TotalAmountCents
	return ev
}

// PaymentSettledEvent is emitted for both SUCCESS and FAILED outcomes.
func PaymentSettledEvent(p model.Payment, userID uint64) Event {
	ev := newEvent(KindPaymentSettled)
	ev.UserID = userID
	ev.BookingID = p.BookingID
	ev.PaymentID = p.ID
	ev.Status = string(p.Status)
	ev.AmountCents = p.AmountCents
	return ev
}

// DecodeEvent unmarshals a delivery body.
func DecodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("decode event: missing kind")
	}
	return ev, nil
}
