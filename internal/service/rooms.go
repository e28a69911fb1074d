package service

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type NewRoomInput struct {
	Key                model.RoomKey
	Category           model.RoomCategory
	PricePerNightCents int64
	MaxOccupancy       int
}

// CreateRoom builds the room through the category factory and stores it
// AVAILABLE.
func (l *BookingLedger) CreateRoom(ctx context.Context, in NewRoomInput) (model.Room, error) {
	room, err := model.NewRoom(in.Category, in.Key, in.PricePerNightCents, in.MaxOccupancy)
	if err != nil {
		return model.Room{}, err
	}
	room.CreatedAt = l.now()
	err = l.store.Atomic(ctx, func(tx repository.Tx) error {
		return tx.InsertRoom(ctx, room)
	})
	if err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func (l *BookingLedger) GetRoom(ctx context.Context, key model.RoomKey) (model.Room, error) {
	return l.store.GetRoom(ctx, key)
}

func (l *BookingLedger) ListRooms(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	return l.store.ListRooms(ctx, hotelID)
}

// MarkMaintenance takes an AVAILABLE room out of service. Any other state
// fails with model.ErrInvalidTransition.
func (l *BookingLedger) MarkMaintenance(ctx context.Context, key model.RoomKey) (model.Room, error) {
	var updated model.Room
	err := l.store.Atomic(ctx, func(tx repository.Tx) error {
		room, err := tx.LockRoom(ctx, key)
		if err != nil {
			return err
		}
		next, err := room.State.MarkMaintenance()
		if err != nil {
			return err
		}
		if err := tx.UpdateRoomState(ctx, key, next); err != nil {
			return err
		}
		room.State = next
		updated = room
		return nil
	})
	return updated, err
}
