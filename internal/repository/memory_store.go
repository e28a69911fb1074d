package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// MemoryStore is a process-local Store used by tests and by
// STORE_DRIVER=memory. Atomic calls run one at a time; their writes are
// staged and applied only when fn returns nil.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[model.RoomKey]model.Room
	bookings map[string]model.Booking
	payments map[string]model.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[model.RoomKey]model.Room),
		bookings: make(map[string]model.Booking),
		payments: make(map[string]model.Payment),
	}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:        s,
		rooms:    make(map[model.RoomKey]model.Room),
		bookings: make(map[string]model.Booking),
		payments: make(map[string]model.Payment),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k, r := range tx.rooms {
		s.rooms[k] = r
	}
	for id, b := range tx.bookings {
		s.bookings[id] = b
	}
	for id, p := range tx.payments {
		s.payments[id] = p
	}
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, key model.RoomKey) (model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[key]
	if !ok {
		return model.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	return r, nil
}

func (s *MemoryStore) ListRooms(_ context.Context, hotelID uint64) ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Room
	for k, r := range s.rooms {
		if k.HotelID == hotelID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.RoomID < out[j].Key.RoomID })
	return out, nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, nil
}

func (s *MemoryStore) ListBookingsByRoom(_ context.Context, key model.RoomKey) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBookings(s.bookings, func(b model.Booking) bool { return b.Room == key }), nil
}

func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBookings(s.bookings, func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (s *MemoryStore) CountOverlapping(_ context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(filterBookings(s.bookings, overlapping(key, checkIn, checkOut))), nil
}

func (s *MemoryStore) GetPayment(_ context.Context, id string) (model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	return p, nil
}

func (s *MemoryStore) ListPaymentsByBooking(_ context.Context, bookingID string) ([]model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func overlapping(key model.RoomKey, checkIn, checkOut time.Time) func(model.Booking) bool {
	return func(b model.Booking) bool {
		return b.Room == key && b.Status.Active() && model.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut)
	}
}

func filterBookings(m map[string]model.Booking, keep func(model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, b := range m {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.Before(out[j].CheckIn)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// memTx overlays staged writes on the store. The store's write lock is
// held for the whole transaction, so Lock* methods are plain reads.
type memTx struct {
	s        *MemoryStore
	rooms    map[model.RoomKey]model.Room
	bookings map[string]model.Booking
	payments map[string]model.Payment
}

func (t *memTx) room(key model.RoomKey) (model.Room, bool) {
	if r, ok := t.rooms[key]; ok {
		return r, true
	}
	r, ok := t.s.rooms[key]
	return r, ok
}

func (t *memTx) booking(id string) (model.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	b, ok := t.s.bookings[id]
	return b, ok
}

func (t *memTx) payment(id string) (model.Payment, bool) {
	if p, ok := t.payments[id]; ok {
		return p, true
	}
	p, ok := t.s.payments[id]
	return p, ok
}

// allBookings merges staged bookings over committed ones.
func (t *memTx) allBookings() map[string]model.Booking {
	merged := make(map[string]model.Booking, len(t.s.bookings)+len(t.bookings))
	for id, b := range t.s.bookings {
		merged[id] = b
	}
	for id, b := range t.bookings {
		merged[id] = b
	}
	return merged
}

func (t *memTx) InsertRoom(_ context.Context, r model.Room) error {
	if _, ok := t.room(r.Key); ok {
		return fmt.Errorf("%w: %s", ErrRoomExists, r.Key)
	}
	t.rooms[r.Key] = r
	return nil
}

func (t *memTx) LockRoom(_ context.Context, key model.RoomKey) (model.Room, error) {
	r, ok := t.room(key)
	if !ok {
		return model.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	return r, nil
}

func (t *memTx) UpdateRoomState(_ context.Context, key model.RoomKey, state model.RoomState) error {
	r, ok := t.room(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	r.State = state
	t.rooms[key] = r
	return nil
}

func (t *memTx) CountOverlapping(_ context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	return len(filterBookings(t.allBookings(), overlapping(key, checkIn, checkOut))), nil
}

func (t *memTx) CountActiveForRoom(_ context.Context, key model.RoomKey, excludeID string) (int, error) {
	active := filterBookings(t.allBookings(), func(b model.Booking) bool {
		return b.Room == key && b.Status.Active() && b.ID != excludeID
	})
	return len(active), nil
}

func (t *memTx) InsertBooking(_ context.Context, b model.Booking) error {
	if _, ok := t.booking(b.ID); ok {
		return fmt.Errorf("duplicate booking id %s", b.ID)
	}
	t.bookings[b.ID] = b
	return nil
}

func (t *memTx) GetBooking(_ context.Context, id string) (model.Booking, error) {
	b, ok := t.booking(id)
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, nil
}

func (t *memTx) LockBooking(ctx context.Context, id string) (model.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *memTx) UpdateBookingStatus(_ context.Context, id string, status model.BookingStatus) error {
	b, ok := t.booking(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	b.Status = status
	t.bookings[id] = b
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p model.Payment) error {
	if _, ok := t.payment(p.ID); ok {
		return fmt.Errorf("duplicate payment id %s", p.ID)
	}
	t.payments[p.ID] = p
	return nil
}

func (t *memTx) SettlePayment(_ context.Context, id string, status model.PaymentStatus, at time.Time) error {
	p, ok := t.payment(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	if p.Status != model.PaymentPending {
		return fmt.Errorf("%w: payment %s is %s", ErrAlreadySettled, id, p.Status)
	}
	p.Status = status
	p.TransactionAt = &at
	t.payments[id] = p
	return nil
}
