package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/retry"
)

// RetryPolicy bounds how often Atomic replays a transaction that lost a
// deadlock or lock wait.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       float64
}

// DefaultRetryPolicy retries a conflicting transaction three times.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, InitialDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Jitter: 0.1}

// IsSerializationConflict reports whether err is a MySQL deadlock or lock
// wait timeout. Those abort the transaction and are safe to replay.
func IsSerializationConflict(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
}

// MySQLStore implements Store on top of the three MySQL repositories.
type MySQLStore struct {
	db         *sql.DB
	Rooms      *RoomRepo
	Bookings   *BookingRepo
	Payments   *PaymentRepo
	newRetrier func() *retry.Retrier[struct{}]
}

func NewMySQLStore(db *sql.DB, policy RetryPolicy) *MySQLStore {
	return &MySQLStore{
		db:       db,
		Rooms:    NewRoomRepo(db),
		Bookings: NewBookingRepo(db),
		Payments: NewPaymentRepo(db),
		newRetrier: retry.NewExponentialRetrierFactory[struct{}](
			policy.MaxRetries, policy.InitialDelay, policy.Jitter, policy.MaxDelay, IsSerializationConflict),
	}
}

// DB exposes the underlying pool, e.g. for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

func (s *MySQLStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return s.newRetrier().Do(ctx, func() error { return s.atomicOnce(ctx, fn) })
}

func (s *MySQLStore) atomicOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetRoom(ctx context.Context, key model.RoomKey) (model.Room, error) {
	return s.Rooms.Get(ctx, key)
}

func (s *MySQLStore) ListRooms(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	return s.Rooms.ListByHotel(ctx, hotelID)
}

func (s *MySQLStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return s.Bookings.Get(ctx, id)
}

func (s *MySQLStore) ListBookingsByRoom(ctx context.Context, key model.RoomKey) ([]model.Booking, error) {
	return s.Bookings.ListByRoom(ctx, key)
}

func (s *MySQLStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

func (s *MySQLStore) CountOverlapping(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	return s.Bookings.CountOverlapping(ctx, key, checkIn, checkOut)
}

func (s *MySQLStore) GetPayment(ctx context.Context, id string) (model.Payment, error) {
	return s.Payments.Get(ctx, id)
}

func (s *MySQLStore) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	return s.Payments.ListByBooking(ctx, bookingID)
}

// sqlTx binds the repositories' ...Tx methods to one *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
	s  *MySQLStore
}

func (t *sqlTx) InsertRoom(ctx context.Context, r model.Room) error {
	return t.s.Rooms.CreateTx(ctx, t.tx, r)
}

func (t *sqlTx) LockRoom(ctx context.Context, key model.RoomKey) (model.Room, error) {
	return t.s.Rooms.LockTx(ctx, t.tx, key)
}

func (t *sqlTx) UpdateRoomState(ctx context.Context, key model.RoomKey, state model.RoomState) error {
	return t.s.Rooms.UpdateStateTx(ctx, t.tx, key, state)
}

func (t *sqlTx) CountOverlapping(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (int, error) {
	return t.s.Bookings.CountOverlappingTx(ctx, t.tx, key, checkIn, checkOut)
}

func (t *sqlTx) CountActiveForRoom(ctx context.Context, key model.RoomKey, excludeID string) (int, error) {
	return t.s.Bookings.CountActiveForRoomTx(ctx, t.tx, key, excludeID)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b model.Booking) error {
	return t.s.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return t.s.Bookings.GetTx(ctx, t.tx, id)
}

func (t *sqlTx) LockBooking(ctx context.Context, id string) (model.Booking, error) {
	return t.s.Bookings.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
	return t.s.Bookings.UpdateStatusTx(ctx, t.tx, id, status)
}

func (t *sqlTx) InsertPayment(ctx context.Context, p model.Payment) error {
	return t.s.Payments.CreateTx(ctx, t.tx, p)
}

func (t *sqlTx) SettlePayment(ctx context.Context, id string, status model.PaymentStatus, at time.Time) error {
	return t.s.Payments.SettleTx(ctx, t.tx, id, status, at)
}
