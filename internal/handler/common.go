// Package handler exposes the reservation engine over HTTP with echo.
// Handlers parse input, call the service layer and translate its errors
// with writeError.
package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

// errBadInput marks request validation failures; writeError maps it to 400.
var errBadInput = errors.New("bad input")

func badInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadInput, fmt.Sprintf(format, args...))
}

// getUserID returns the caller id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

func isOwner(c echo.Context) bool {
	role, _ := c.Get(middleware.CtxRole).(string)
	return role == utils.RoleOwner
}

// authorizeBooking lets a customer act only on their own bookings. Owners
// may act on any booking.
func authorizeBooking(c echo.Context, b model.Booking) error {
	if isOwner(c) {
		return nil
	}
	uid, err := getUserID(c)
	if err != nil || uid != b.UserID {
		return repository.ErrForbidden
	}
	return nil
}

func parseID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, badInput("invalid %s", name)
	}
	return n, nil
}

func parseRoomKey(c echo.Context) (model.RoomKey, error) {
	hotelID, err := parseID(c, "hotel_id")
	if err != nil {
		return model.RoomKey{}, err
	}
	roomID, err := parseID(c, "room_id")
	if err != nil {
		return model.RoomKey{}, err
	}
	return model.RoomKey{HotelID: hotelID, RoomID: roomID}, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, badInput("%s is required", field)
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, badInput("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}
