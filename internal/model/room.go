package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownCategory is returned by NewRoom for a category with no
// registered constructor.
var ErrUnknownCategory = errors.New("unknown room category")

// ErrInvalidRoom is returned when a room's price or occupancy is out of range.
var ErrInvalidRoom = errors.New("invalid room attributes")

// RoomCategory is informational; it never affects availability.
type RoomCategory string

const (
	CategorySingle RoomCategory = "SINGLE"
	CategoryDouble RoomCategory = "DOUBLE"
	CategorySuite  RoomCategory = "SUITE"
	CategoryDeluxe RoomCategory = "DELUXE"
)

// ParseRoomCategory accepts any casing and surrounding whitespace.
func ParseRoomCategory(s string) (RoomCategory, error) {
	c := RoomCategory(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roomFactories[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// RoomKey is the composite identity of a room.
type RoomKey struct {
	HotelID uint64 // rooms.hotel_id
	RoomID  uint64 // rooms.room_id
}

func (k RoomKey) String() string { return fmt.Sprintf("%d/%d", k.HotelID, k.RoomID) }

// Room is a bookable unit inside a hotel.
//
// Fields:
//
//	Key                – (hotel_id, room_id), immutable after creation.
//	Category           – SINGLE, DOUBLE, SUITE or DELUXE.
//	PricePerNightCents – nightly price in cents.
//	MaxOccupancy       – maximum number of guests.
//	State              – occupancy state, changed only through RoomState.Apply.
//	CreatedAt          – creation timestamp.
type Room struct {
	Key                RoomKey      // rooms.hotel_id, rooms.room_id
	Category           RoomCategory // rooms.category
	PricePerNightCents int64        // rooms.price_per_night_cents
	MaxOccupancy       int          // rooms.max_occupancy
	State              RoomState    // rooms.state
	CreatedAt          time.Time    // rooms.created_at
}

type roomFactory struct {
	defaultOccupancy int
}

func (f roomFactory) build(c RoomCategory, key RoomKey, priceCents int64, maxOccupancy int) Room {
	if maxOccupancy == 0 {
		maxOccupancy = f.defaultOccupancy
	}
	return Room{
		Key:                key,
		Category:           c,
		PricePerNightCents: priceCents,
		MaxOccupancy:       maxOccupancy,
		State:              StateAvailable,
	}
}

var roomFactories = map[RoomCategory]roomFactory{
	CategorySingle: {defaultOccupancy: 1},
	CategoryDouble: {defaultOccupancy: 2},
	CategorySuite:  {defaultOccupancy: 4},
	CategoryDeluxe: {defaultOccupancy: 3},
}

// NewRoom builds an AVAILABLE room through the constructor registered for
// its category. A zero maxOccupancy takes the category default.
func NewRoom(c RoomCategory, key RoomKey, priceCents int64, maxOccupancy int) (Room, error) {
	f, ok := roomFactories[c]
	if !ok {
		return Room{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if priceCents < 0 {
		return Room{}, fmt.Errorf("%w: negative price", ErrInvalidRoom)
	}
	r := f.build(c, key, priceCents, maxOccupancy)
	if r.MaxOccupancy < 1 {
		return Room{}, fmt.Errorf("%w: max occupancy must be at least 1", ErrInvalidRoom)
	}
	return r, nil
}
