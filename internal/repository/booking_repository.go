package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingRepo provides persistence for bookings. check_in and check_out
// are DATE columns; with parseTime=true&loc=UTC they scan as UTC midnight.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const selectBooking = `SELECT id, hotel_id, room_id, user_id, check_in, check_out, total_amount_cents, status, created_at FROM bookings`

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := s.Scan(&b.ID, &b.Room.HotelID, &b.Room.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut,
		&b.TotalAmountCents, &status, &b.CreatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	st, err := model.ParseBookingStatus(status)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = st
	return b, nil
}

func (r *BookingRepo) get(ctx context.Context, q queryer, id string, forUpdate bool) (model.Booking, error) {
	query := selectBooking + ` WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, err
}

func (r *BookingRepo) Get(ctx context.Context, id string) (model.Booking, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (model.Booking, error) {
	return r.get(ctx, tx, id, false)
}

func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) (model.Booking, error) {
	return r.get(ctx, tx, id, true)
}

func (r *BookingRepo) list(ctx context.Context, where string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, selectBooking+` WHERE `+where+` ORDER BY check_in, created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) ListByRoom(ctx context.Context, key model.RoomKey) ([]model.Booking, error) {
	return r.list(ctx, `hotel_id = ? AND room_id = ?`, key.HotelID, key.RoomID)
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, `user_id = ?`, userID)
}

// countOverlapping applies [a1,a2) ∩ [b1,b2) ≠ ∅ ⇔ a1 < b2 AND b1 < a2,
// ignoring cancelled bookings.
func (r *BookingRepo) countOverlapping(ctx context.Context, q queryer, key model.RoomKey, checkIn, checkOut time.Time, locking bool) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE hotel_id = ? AND room_id = ? AND status IN ('PENDING','CONFIRMED') AND check_in < ? AND ? < check_out`
	if locking {
		query += lockInShareMode
	}
	var n int
	err := q.QueryRowContext(ctx, query, key.HotelID, key.RoomID, checkOut, checkIn).Scan(&n)
	return n, err
}

func (r *BookingRepo) CountOverlapping(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	return r.countOverlapping(ctx, r.db, key, checkIn, checkOut, false)
}

// lockInShareMode turns a count into a locking read. Under REPEATABLE READ
// a plain SELECT reads the snapshot taken by the transaction's first
// consistent read, which may predate the room lock; a locking read sees
// the latest committed rows.
const lockInShareMode = ` LOCK IN SHARE MODE`

// CountOverlappingTx must run after the room row is locked; the lock is
// what keeps the count valid until commit.
func (r *BookingRepo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	return r.countOverlapping(ctx, tx, key, checkIn, checkOut, true)
}

// CountActiveForRoomTx counts PENDING and CONFIRMED bookings of the room
// other than excludeID. Like CountOverlappingTx it must run under the room
// lock.
func (r *BookingRepo) CountActiveForRoomTx(ctx context.Context, tx *sql.Tx, key model.RoomKey, excludeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE hotel_id = ? AND room_id = ? AND status IN ('PENDING','CONFIRMED') AND id <> ?` + lockInShareMode
	var n int
	err := tx.QueryRowContext(ctx, query, key.HotelID, key.RoomID, excludeID).Scan(&n)
	return n, err
}

func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b model.Booking) error {
	const q = `INSERT INTO bookings (id, hotel_id, room_id, user_id, check_in, check_out, total_amount_cents, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, b.ID, b.Room.HotelID, b.Room.RoomID, b.UserID, b.CheckIn, b.CheckOut,
		b.TotalAmountCents, string(b.Status), b.CreatedAt)
	return err
}

func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return nil
}
