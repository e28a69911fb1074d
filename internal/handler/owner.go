package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// OwnerHandler administers rooms. Routes are restricted to the OWNER role
// by the router.
type OwnerHandler struct {
	Ledger *service.BookingLedger
}

func NewOwnerHandler(ledger *service.BookingLedger) *OwnerHandler {
	if ledger == nil {
		panic("nil ledger passed to NewOwnerHandler")
	}
	return &OwnerHandler{Ledger: ledger}
}

type createRoomRequest struct {
	HotelID            uint64 `json:"hotel_id"`
	RoomID             uint64 `json:"room_id"`
	Category           string `json:"category"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	MaxOccupancy       int    `json:"max_occupancy"`
}

// CreateRoom handles POST /v1/owner/rooms. max_occupancy may be omitted to
// take the category default.
func (h *OwnerHandler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, badInput("invalid request body"))
	}
	if req.HotelID == 0 || req.RoomID == 0 {
		return writeError(c, badInput("hotel_id and room_id are required"))
	}
	category, err := model.ParseRoomCategory(req.Category)
	if err != nil {
		return writeError(c, err)
	}
	room, err := h.Ledger.CreateRoom(c.Request().Context(), service.NewRoomInput{
		Key:                model.RoomKey{HotelID: req.HotelID, RoomID: req.RoomID},
		Category:           category,
		PricePerNightCents: req.PricePerNightCents,
		MaxOccupancy:       req.MaxOccupancy,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toRoom(room))
}

// RoomBookings handles GET /v1/owner/hotels/:hotel_id/rooms/:room_id/bookings.
func (h *OwnerHandler) RoomBookings(c echo.Context) error {
	key, err := parseRoomKey(c)
	if err != nil {
		return writeError(c, err)
	}
	bs, err := h.Ledger.GetBookingsForRoom(c.Request().Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookings(bs)})
}

// MarkMaintenance handles
// POST /v1/owner/hotels/:hotel_id/rooms/:room_id/maintenance.
func (h *OwnerHandler) MarkMaintenance(c echo.Context) error {
	key, err := parseRoomKey(c)
	if err != nil {
		return writeError(c, err)
	}
	room, err := h.Ledger.MarkMaintenance(c.Request().Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRoom(room))
}
