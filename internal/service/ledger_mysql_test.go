package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

var (
	mockRoomCols    = []string{"hotel_id", "room_id", "category", "price_per_night_cents", "max_occupancy", "state", "created_at"}
	mockBookingCols = []string{"id", "hotel_id", "room_id", "user_id", "check_in", "check_out", "total_amount_cents", "status", "created_at"}
)

const countActiveSQL = "SELECT COUNT(*) FROM bookings WHERE hotel_id = ? AND room_id = ? AND status IN ('PENDING','CONFIRMED') AND id <> ? LOCK IN SHARE MODE"

func newMySQLLedger(t *testing.T) (*BookingLedger, sqlmock.Sqlmock, *recordingSink) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := repository.NewMySQLStore(db, repository.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
	sink := &recordingSink{}
	return NewBookingLedger(store, sink), mock, sink
}

// expectCancelUpTo queues the statements of a cancel up to the count of
// the room's other active bookings, which returns others.
func expectCancelUpTo(mock sqlmock.Sqlmock, others int) {
	in, _ := model.ParseDate("2025-05-01")
	out, _ := model.ParseDate("2025-05-03")
	bookingRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(mockBookingCols).AddRow("a", 1, 101, 7, in, out, 10000, "PENDING", time.Now())
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).WithArgs("a").WillReturnRows(bookingRow())
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE hotel_id = ? AND room_id = ? FOR UPDATE")).WithArgs(1, 101).
		WillReturnRows(sqlmock.NewRows(mockRoomCols).AddRow(1, 101, "SINGLE", 5000, 2, "BOOKED", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ? FOR UPDATE")).WithArgs("a").WillReturnRows(bookingRow())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ?")).WithArgs("CANCELLED", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(countActiveSQL)).WithArgs(1, 101, "a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(others))
}

// A booking committed by another transaction after this one began must
// keep the room BOOKED; the count is a locking read, not a snapshot read.
func TestMySQLCancelKeepsRoomBookedForConcurrentBooking(t *testing.T) {
	l, mock, sink := newMySQLLedger(t)
	expectCancelUpTo(mock, 1)
	mock.ExpectCommit()

	b, err := l.CancelBooking(context.Background(), "a")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("status = %s", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
	if got := sink.kinds(); len(got) != 1 || got[0] != queue.KindBookingCancelled {
		t.Fatalf("events = %v", got)
	}
}

func TestMySQLCancelLastBookingChecksRoomOut(t *testing.T) {
	l, mock, _ := newMySQLLedger(t)
	expectCancelUpTo(mock, 0)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET state = ? WHERE hotel_id = ? AND room_id = ?")).
		WithArgs("AVAILABLE", 1, 101).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := l.CancelBooking(context.Background(), "a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
