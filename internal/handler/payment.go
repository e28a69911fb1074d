package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/service"
)

type PaymentHandler struct {
	Ledger        *service.BookingLedger
	Payments      *service.PaymentProcessor
	SettleTimeout time.Duration
}

func NewPaymentHandler(ledger *service.BookingLedger, payments *service.PaymentProcessor, settleTimeout time.Duration) *PaymentHandler {
	if ledger == nil || payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	if settleTimeout <= 0 {
		settleTimeout = 10 * time.Second
	}
	return &PaymentHandler{Ledger: ledger, Payments: payments, SettleTimeout: settleTimeout}
}

type createPaymentRequest struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

// authorize checks the caller may act on the booking's payments.
func (h *PaymentHandler) authorize(c echo.Context, bookingID string) error {
	b, err := h.Ledger.GetBookingByID(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}
	return authorizeBooking(c, b)
}

// CreatePayment handles POST /v1/bookings/:id/payments.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, badInput("invalid request body"))
	}
	bookingID := c.Param("id")
	if err := h.authorize(c, bookingID); err != nil {
		return writeError(c, err)
	}
	p, err := h.Payments.CreatePayment(c.Request().Context(), bookingID, req.Method, req.AmountCents)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toPayment(p))
}

// ListPayments handles GET /v1/bookings/:id/payments.
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	bookingID := c.Param("id")
	if err := h.authorize(c, bookingID); err != nil {
		return writeError(c, err)
	}
	ps, err := h.Payments.GetPaymentsForBooking(c.Request().Context(), bookingID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]paymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPayment(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// GetPayment handles GET /v1/payments/:id.
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	p, err := h.Payments.GetPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.authorize(c, p.BookingID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPayment(p))
}

type settleRequest struct {
	Method string `json:"method"`
}

// Settle handles POST /v1/payments/:id/settle. The body is optional; an
// empty method settles with the recorded one.
func (h *PaymentHandler) Settle(c echo.Context) error {
	var req settleRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return writeError(c, badInput("invalid request body"))
		}
	}
	p, err := h.Payments.GetPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.authorize(c, p.BookingID); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.SettleTimeout)
	defer cancel()
	settled, err := h.Payments.Settle(ctx, p.ID, req.Method)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPayment(settled))
}
