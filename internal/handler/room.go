package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// RoomHandler serves room reads and availability checks to any
// authenticated caller.
type RoomHandler struct {
	Ledger       *service.BookingLedger
	Availability *service.AvailabilityChecker
}

func NewRoomHandler(ledger *service.BookingLedger, availability *service.AvailabilityChecker) *RoomHandler {
	if ledger == nil || availability == nil {
		panic("nil service passed to NewRoomHandler")
	}
	return &RoomHandler{Ledger: ledger, Availability: availability}
}

// ListRooms handles GET /v1/hotels/:hotel_id/rooms.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	hotelID, err := parseID(c, "hotel_id")
	if err != nil {
		return writeError(c, err)
	}
	rooms, err := h.Ledger.ListRooms(c.Request().Context(), hotelID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoom(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// GetRoom handles GET /v1/hotels/:hotel_id/rooms/:room_id.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	key, err := parseRoomKey(c)
	if err != nil {
		return writeError(c, err)
	}
	room, err := h.Ledger.GetRoom(c.Request().Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRoom(room))
}

// CheckAvailability handles
// GET /v1/hotels/:hotel_id/rooms/:room_id/availability?check_in=&check_out=.
// The answer is advisory; a later booking attempt may still conflict.
func (h *RoomHandler) CheckAvailability(c echo.Context) error {
	key, err := parseRoomKey(c)
	if err != nil {
		return writeError(c, err)
	}
	in, err := parseDate("check_in", c.QueryParam("check_in"))
	if err != nil {
		return writeError(c, err)
	}
	out, err := parseDate("check_out", c.QueryParam("check_out"))
	if err != nil {
		return writeError(c, err)
	}
	ok, err := h.Availability.IsAvailable(c.Request().Context(), key, in, out)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotel_id":  key.HotelID,
		"room_id":   key.RoomID,
		"check_in":  in.Format(model.DateLayout),
		"check_out": out.Format(model.DateLayout),
		"available": ok,
	})
}
