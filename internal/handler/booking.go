package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// BookingHandler lets customers create, inspect, confirm and cancel their
// bookings.
type BookingHandler struct {
	Ledger *service.BookingLedger
}

func NewBookingHandler(ledger *service.BookingLedger) *BookingHandler {
	if ledger == nil {
		panic("nil ledger passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: ledger}
}

type createBookingRequest struct {
	HotelID  uint64 `json:"hotel_id"`
	RoomID   uint64 `json:"room_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	// TotalAmountCents defaults to nights times the room's nightly price.
	TotalAmountCents *int64 `json:"total_amount_cents"`
}

// CreateBooking handles POST /v1/bookings for the authenticated user.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, badInput("invalid request body"))
	}
	if req.HotelID == 0 || req.RoomID == 0 {
		return writeError(c, badInput("hotel_id and room_id are required"))
	}
	in, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		return writeError(c, err)
	}
	out, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		return writeError(c, err)
	}
	key := model.RoomKey{HotelID: req.HotelID, RoomID: req.RoomID}
	ctx := c.Request().Context()

	var total int64
	if req.TotalAmountCents != nil {
		total = *req.TotalAmountCents
	} else {
		room, err := h.Ledger.GetRoom(ctx, key)
		if err != nil {
			return writeError(c, err)
		}
		nights := model.Booking{CheckIn: in, CheckOut: out}.Nights()
		if nights > 0 {
			total = int64(nights) * room.PricePerNightCents
		}
	}

	b, err := h.Ledger.CreateBooking(ctx, service.CreateBookingInput{
		Room:             key,
		UserID:           userID,
		CheckIn:          in,
		CheckOut:         out,
		TotalAmountCents: total,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBooking(b))
}

// loadOwned fetches the booking named by :id and checks the caller may
// act on it.
func (h *BookingHandler) loadOwned(c echo.Context) (model.Booking, error) {
	b, err := h.Ledger.GetBookingByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return model.Booking{}, err
	}
	if err := authorizeBooking(c, b); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	b, err := h.loadOwned(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBooking(b))
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.Ledger.GetBookingsForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookings(bs)})
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	if _, err := h.loadOwned(c); err != nil {
		return writeError(c, err)
	}
	b, err := h.Ledger.ConfirmBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBooking(b))
}

// CancelBooking handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	if _, err := h.loadOwned(c); err != nil {
		return writeError(c, err)
	}
	b, err := h.Ledger.CancelBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBooking(b))
}
