// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health   echo.HandlerFunc
	Rooms    *handler.RoomHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Owner    *handler.OwnerHandler
}

// New builds an echo instance with request ids, access logging and panic
// recovery, and registers every route.
func New(h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	RegisterRoutes(e, h.Health)
	RegisterCustomer(e, h, jwtSecret, rateLimit)
	RegisterOwner(e, h.Owner, jwtSecret)
	return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterCustomer registers the booking and payment API. Both roles may
// use it; handlers restrict customers to their own bookings.
func RegisterCustomer(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleCustomer, utils.RoleOwner),
	}
	if rateLimit != nil {
		mws = append(mws, rateLimit)
	}
	g := e.Group("/v1", mws...)

	g.GET("/hotels/:hotel_id/rooms", h.Rooms.ListRooms)
	g.GET("/hotels/:hotel_id/rooms/:room_id", h.Rooms.GetRoom)
	g.GET("/hotels/:hotel_id/rooms/:room_id/availability", h.Rooms.CheckAvailability)

	g.POST("/bookings", h.Bookings.CreateBooking)
	g.GET("/bookings/:id", h.Bookings.GetBooking)
	g.GET("/my-bookings", h.Bookings.MyBookings)
	g.POST("/bookings/:id/confirm", h.Bookings.ConfirmBooking)
	g.POST("/bookings/:id/cancel", h.Bookings.CancelBooking)

	g.POST("/bookings/:id/payments", h.Payments.CreatePayment)
	g.GET("/bookings/:id/payments", h.Payments.ListPayments)
	g.GET("/payments/:id", h.Payments.GetPayment)
	g.POST("/payments/:id/settle", h.Payments.Settle)
}

// RegisterOwner registers room administration under /v1/owner for the
// OWNER role.
func RegisterOwner(e *echo.Echo, h *handler.OwnerHandler, jwtSecret string) {
	g := e.Group("/v1/owner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOwner),
	)
	g.POST("/rooms", h.CreateRoom)
	g.GET("/hotels/:hotel_id/rooms/:room_id/bookings", h.RoomBookings)
	g.POST("/hotels/:hotel_id/rooms/:room_id/maintenance", h.MarkMaintenance)
}
