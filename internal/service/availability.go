package service

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// AvailabilityChecker answers availability queries from committed data.
// Its answer is advisory: BookingLedger.CreateBooking repeats the check
// inside its own transaction.
type AvailabilityChecker struct {
	store repository.Reader
}

func NewAvailabilityChecker(store repository.Reader) *AvailabilityChecker {
	return &AvailabilityChecker{store: store}
}

// IsAvailable reports whether no PENDING or CONFIRMED booking of the room
// overlaps [checkIn, checkOut).
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, key model.RoomKey, checkIn, checkOut time.Time) (bool, error) {
	in, out, err := model.ValidateRange(checkIn, checkOut)
	if err != nil {
		return false, err
	}
	if _, err := a.store.GetRoom(ctx, key); err != nil {
		return false, err
	}
	n, err := a.store.CountOverlapping(ctx, key, in, out)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
