package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type recordingSink struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, ev queue.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) kinds() []queue.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]queue.EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

var testRoom = model.RoomKey{HotelID: 1, RoomID: 101}

func newLedger(t *testing.T) (*BookingLedger, *repository.MemoryStore, *recordingSink) {
	t.Helper()
	store := repository.NewMemoryStore()
	sink := &recordingSink{}
	l := NewBookingLedger(store, sink)
	if _, err := l.CreateRoom(context.Background(), NewRoomInput{
		Key: testRoom, Category: model.CategorySingle, PricePerNightCents: 5000, MaxOccupancy: 2,
	}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return l, store, sink
}

func book(l *BookingLedger, user uint64, in, out string) (model.Booking, error) {
	return l.CreateBooking(context.Background(), CreateBookingInput{
		Room: testRoom, UserID: user, CheckIn: day(in), CheckOut: day(out), TotalAmountCents: 10000,
	})
}

func TestCreateBookingMovesRoomToBooked(t *testing.T) {
	l, _, sink := newLedger(t)
	ctx := context.Background()

	b, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BookingPending || b.ID == "" {
		t.Fatalf("unexpected booking %+v", b)
	}
	room, _ := l.GetRoom(ctx, testRoom)
	if room.State != model.StateBooked {
		t.Fatalf("room state = %s, want BOOKED", room.State)
	}
	if got := sink.kinds(); len(got) != 1 || got[0] != queue.KindBookingCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	l, _, _ := newLedger(t)
	if _, err := book(l, 7, "2025-05-01", "2025-05-05"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		in, out string
		wantErr error
	}{
		{"inside", "2025-05-02", "2025-05-03", ErrRoomUnavailable},
		{"straddles start", "2025-04-28", "2025-05-02", ErrRoomUnavailable},
		{"straddles end", "2025-05-04", "2025-05-08", ErrRoomUnavailable},
		{"touching after", "2025-05-05", "2025-05-07", nil},
		{"touching before", "2025-04-29", "2025-05-01", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := book(l, 8, tc.in, tc.out)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateBookingValidation(t *testing.T) {
	l, _, sink := newLedger(t)
	ctx := context.Background()

	if _, err := book(l, 7, "2025-05-03", "2025-05-03"); !errors.Is(err, model.ErrInvalidDateRange) {
		t.Fatalf("empty range: got %v", err)
	}
	if _, err := book(l, 7, "2025-05-03", "2025-05-01"); !errors.Is(err, model.ErrInvalidDateRange) {
		t.Fatalf("reversed range: got %v", err)
	}
	_, err := l.CreateBooking(ctx, CreateBookingInput{
		Room: testRoom, UserID: 7, CheckIn: day("2025-05-01"), CheckOut: day("2025-05-02"), TotalAmountCents: -1,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative total: got %v", err)
	}
	_, err = l.CreateBooking(ctx, CreateBookingInput{
		Room: model.RoomKey{HotelID: 9, RoomID: 9}, UserID: 7, CheckIn: day("2025-05-01"), CheckOut: day("2025-05-02"),
	})
	if !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("missing room: got %v", err)
	}
	if n := len(sink.kinds()); n != 0 {
		t.Fatalf("failed bookings emitted %d events", n)
	}
}

func TestConcurrentIdenticalBookingsOneWins(t *testing.T) {
	l, store, _ := newLedger(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			<-start
			_, err := book(l, user, "2025-06-10", "2025-06-12")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrRoomUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("successes=%d conflicts=%d", successes, conflicts)
	}
	active, _ := store.CountOverlapping(context.Background(), testRoom, day("2025-06-10"), day("2025-06-12"))
	if active != 1 {
		t.Fatalf("active overlapping bookings = %d", active)
	}
}

func TestCancelFreesRangeAndChecksOut(t *testing.T) {
	l, _, sink := newLedger(t)
	ctx := context.Background()

	b, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := l.CancelBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	room, _ := l.GetRoom(ctx, testRoom)
	if room.State != model.StateAvailable {
		t.Fatalf("room state after last cancel = %s", room.State)
	}
	if _, err := book(l, 8, "2025-05-01", "2025-05-03"); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	want := []queue.EventKind{queue.KindBookingCreated, queue.KindBookingCancelled, queue.KindBookingCreated}
	got := sink.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestCancelKeepsRoomBookedWhileOthersActive(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	first, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := book(l, 8, "2025-05-10", "2025-05-12"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CancelBooking(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	room, _ := l.GetRoom(ctx, testRoom)
	if room.State != model.StateBooked {
		t.Fatalf("room state = %s, want BOOKED", room.State)
	}
}

func TestBookingTransitions(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	b, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatal(err)
	}
	confirmed, err := l.ConfirmBooking(ctx, b.ID)
	if err != nil || confirmed.Status != model.BookingConfirmed {
		t.Fatalf("confirm: %v %+v", err, confirmed)
	}
	if _, err := l.ConfirmBooking(ctx, b.ID); !errors.Is(err, model.ErrInvalidBookingTransition) {
		t.Fatalf("confirm twice: got %v", err)
	}
	if _, err := l.UpdateBookingStatus(ctx, b.ID, model.BookingPending); !errors.Is(err, model.ErrInvalidBookingTransition) {
		t.Fatalf("back to pending: got %v", err)
	}
	if _, err := l.CancelBooking(ctx, b.ID); err != nil {
		t.Fatalf("cancel confirmed: %v", err)
	}
	if _, err := l.CancelBooking(ctx, b.ID); !errors.Is(err, model.ErrInvalidBookingTransition) {
		t.Fatalf("cancel twice: got %v", err)
	}
	if _, err := l.CancelBooking(ctx, "missing"); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("cancel unknown: got %v", err)
	}
}

func TestMaintenanceRejectsBookings(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	room, err := l.MarkMaintenance(ctx, testRoom)
	if err != nil {
		t.Fatal(err)
	}
	if room.State != model.StateUnderMaintenance {
		t.Fatalf("state = %s", room.State)
	}
	if _, err := book(l, 7, "2025-05-01", "2025-05-03"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("book under maintenance: got %v", err)
	}
	if _, err := l.MarkMaintenance(ctx, testRoom); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("maintenance twice: got %v", err)
	}
}

func TestSinkFailureDoesNotRollBack(t *testing.T) {
	l, _, sink := newLedger(t)
	sink.err = queue.ErrSinkFull

	b, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatalf("create with failing sink: %v", err)
	}
	got, err := l.GetBookingByID(context.Background(), b.ID)
	if err != nil || got.Status != model.BookingPending {
		t.Fatalf("booking not durable: %v %+v", err, got)
	}
}

func TestReads(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	second, _ := book(l, 7, "2025-05-10", "2025-05-12")
	first, _ := book(l, 7, "2025-05-01", "2025-05-03")
	if _, err := book(l, 8, "2025-05-20", "2025-05-21"); err != nil {
		t.Fatal(err)
	}

	mine, err := l.GetBookingsForUser(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].ID != first.ID || mine[1].ID != second.ID {
		t.Fatalf("user bookings out of order: %+v", mine)
	}
	all, err := l.GetBookingsForRoom(ctx, testRoom)
	if err != nil || len(all) != 3 {
		t.Fatalf("room bookings: %v %d", err, len(all))
	}
	if _, err := l.GetBookingsForRoom(ctx, model.RoomKey{HotelID: 5, RoomID: 5}); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("unknown room: got %v", err)
	}
	if _, err := l.GetBookingByID(ctx, "nope"); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("unknown booking: got %v", err)
	}
	rooms, err := l.ListRooms(ctx, 1)
	if err != nil || len(rooms) != 1 {
		t.Fatalf("list rooms: %v %d", err, len(rooms))
	}
}

func TestCreateRoomDuplicate(t *testing.T) {
	l, _, _ := newLedger(t)
	_, err := l.CreateRoom(context.Background(), NewRoomInput{Key: testRoom, Category: model.CategoryDouble, PricePerNightCents: 100})
	if !errors.Is(err, repository.ErrRoomExists) {
		t.Fatalf("got %v", err)
	}
}

func TestAvailabilityChecker(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	a := NewAvailabilityChecker(store)

	ok, err := a.IsAvailable(ctx, testRoom, day("2025-05-01"), day("2025-05-03"))
	if err != nil || !ok {
		t.Fatalf("empty room: %v %v", ok, err)
	}
	b, _ := book(l, 7, "2025-05-01", "2025-05-03")
	if ok, _ := a.IsAvailable(ctx, testRoom, day("2025-05-02"), day("2025-05-04")); ok {
		t.Fatal("overlapping range reported available")
	}
	if ok, _ := a.IsAvailable(ctx, testRoom, day("2025-05-03"), day("2025-05-04")); !ok {
		t.Fatal("adjacent range reported unavailable")
	}
	if _, err := l.CancelBooking(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if ok, _ := a.IsAvailable(ctx, testRoom, day("2025-05-02"), day("2025-05-04")); !ok {
		t.Fatal("cancelled booking still blocks")
	}
	if _, err := a.IsAvailable(ctx, testRoom, day("2025-05-04"), day("2025-05-04")); !errors.Is(err, model.ErrInvalidDateRange) {
		t.Fatalf("empty range: got %v", err)
	}
	if _, err := a.IsAvailable(ctx, model.RoomKey{HotelID: 2, RoomID: 2}, day("2025-05-01"), day("2025-05-02")); !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("unknown room: got %v", err)
	}
}
