package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func seedRoom(t *testing.T, s *MemoryStore, key model.RoomKey) {
	t.Helper()
	room, err := model.NewRoom(model.CategoryDouble, key, 9000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Atomic(context.Background(), func(tx Tx) error { return tx.InsertRoom(context.Background(), room) }); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryAtomicDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := model.RoomKey{HotelID: 1, RoomID: 1}
	seedRoom(t, s, key)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx Tx) error {
		if err := tx.UpdateRoomState(ctx, key, model.StateBooked); err != nil {
			return err
		}
		b := model.Booking{ID: "b1", Room: key, Status: model.BookingPending,
			CheckIn: date("2025-01-01"), CheckOut: date("2025-01-02")}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		// Staged writes are visible inside the transaction.
		if n, _ := tx.CountOverlapping(ctx, key, date("2025-01-01"), date("2025-01-05")); n != 1 {
			t.Errorf("staged booking not visible, count=%d", n)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	room, _ := s.GetRoom(ctx, key)
	if room.State != model.StateAvailable {
		t.Fatalf("room state leaked from failed tx: %s", room.State)
	}
	if _, err := s.GetBooking(ctx, "b1"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("booking leaked from failed tx: %v", err)
	}
}

func TestMemoryOverlapIgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := model.RoomKey{HotelID: 1, RoomID: 2}
	seedRoom(t, s, key)

	err := s.Atomic(ctx, func(tx Tx) error {
		for _, b := range []model.Booking{
			{ID: "a", Room: key, Status: model.BookingCancelled, CheckIn: date("2025-03-01"), CheckOut: date("2025-03-05")},
			{ID: "b", Room: key, Status: model.BookingConfirmed, CheckIn: date("2025-03-10"), CheckOut: date("2025-03-12")},
		} {
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountOverlapping(ctx, key, date("2025-03-02"), date("2025-03-04")); n != 0 {
		t.Fatalf("cancelled booking counted: %d", n)
	}
	if n, _ := s.CountOverlapping(ctx, key, date("2025-03-11"), date("2025-03-15")); n != 1 {
		t.Fatalf("confirmed booking not counted: %d", n)
	}
	if n, _ := s.CountOverlapping(ctx, key, date("2025-03-12"), date("2025-03-15")); n != 0 {
		t.Fatalf("boundary counted as overlap: %d", n)
	}
}

func TestMemorySettleConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := model.Payment{ID: "p1", BookingID: "b1", Method: model.MethodStripe, AmountCents: 100, Status: model.PaymentPending}
	if err := s.Atomic(ctx, func(tx Tx) error { return tx.InsertPayment(ctx, p) }); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Atomic(ctx, func(tx Tx) error { return tx.SettlePayment(ctx, "p1", model.PaymentFailed, at) }); err != nil {
		t.Fatal(err)
	}
	err := s.Atomic(ctx, func(tx Tx) error { return tx.SettlePayment(ctx, "p1", model.PaymentSuccess, at.Add(time.Hour)) })
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	got, _ := s.GetPayment(ctx, "p1")
	if got.Status != model.PaymentFailed || got.TransactionAt == nil || !got.TransactionAt.Equal(at) {
		t.Fatalf("payment mutated: %+v", got)
	}
	err = s.Atomic(ctx, func(tx Tx) error { return tx.SettlePayment(ctx, "nope", model.PaymentSuccess, at) })
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestMemoryDuplicateRoom(t *testing.T) {
	s := NewMemoryStore()
	key := model.RoomKey{HotelID: 3, RoomID: 1}
	seedRoom(t, s, key)
	room, _ := model.NewRoom(model.CategorySingle, key, 1, 1)
	err := s.Atomic(context.Background(), func(tx Tx) error { return tx.InsertRoom(context.Background(), room) })
	if !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
	rooms, _ := s.ListRooms(context.Background(), 3)
	if len(rooms) != 1 || rooms[0].Category != model.CategoryDouble {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}
