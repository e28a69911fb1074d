package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so one query helper can
// serve plain reads and transactional ones.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// MySQL error numbers the repositories react to.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// RoomRepo provides persistence for rooms. All timestamps are UTC.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const selectRoom = `SELECT hotel_id, room_id, category, price_per_night_cents, max_occupancy, state, created_at FROM rooms`

func scanRoom(s rowScanner) (model.Room, error) {
	var (
		r        model.Room
		category string
		state    string
	)
	if err := s.Scan(&r.Key.HotelID, &r.Key.RoomID, &category, &r.PricePerNightCents, &r.MaxOccupancy, &state, &r.CreatedAt); err != nil {
		return model.Room{}, err
	}
	r.Category = model.RoomCategory(category)
	st, err := model.ParseRoomState(state)
	if err != nil {
		return model.Room{}, err
	}
	r.State = st
	return r, nil
}

func (r *RoomRepo) get(ctx context.Context, q queryer, key model.RoomKey, forUpdate bool) (model.Room, error) {
	query := selectRoom + ` WHERE hotel_id = ? AND room_id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	room, err := scanRoom(q.QueryRowContext(ctx, query, key.HotelID, key.RoomID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
	}
	return room, err
}

// Get returns a room by key.
func (r *RoomRepo) Get(ctx context.Context, key model.RoomKey) (model.Room, error) {
	return r.get(ctx, r.db, key, false)
}

// LockTx reads the room row with SELECT ... FOR UPDATE. Every writer of
// the room's booking set takes this lock first, which serializes them.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, key model.RoomKey) (model.Room, error) {
	return r.get(ctx, tx, key, true)
}

// ListByHotel returns the rooms of a hotel ordered by room id.
func (r *RoomRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, selectRoom+` WHERE hotel_id = ? ORDER BY room_id`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// CreateTx inserts a room. A duplicate key maps to ErrRoomExists.
func (r *RoomRepo) CreateTx(ctx context.Context, tx *sql.Tx, room model.Room) error {
	const q = `INSERT INTO rooms (hotel_id, room_id, category, price_per_night_cents, max_occupancy, state, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, room.Key.HotelID, room.Key.RoomID, string(room.Category),
		room.PricePerNightCents, room.MaxOccupancy, string(room.State), room.CreatedAt)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
		return fmt.Errorf("%w: %s", ErrRoomExists, room.Key)
	}
	return err
}

// UpdateStateTx persists a state already validated by model.RoomState.Apply.
func (r *RoomRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, key model.RoomKey, state model.RoomState) error {
	const q = `UPDATE rooms SET state = ? WHERE hotel_id = ? AND room_id = ?`
	_, err := tx.ExecContext(ctx, q, string(state), key.HotelID, key.RoomID)
	return err
}
