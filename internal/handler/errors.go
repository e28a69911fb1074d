package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// statusClientClosedRequest is reported when the caller went away before
// the request finished.
const statusClientClosedRequest = 499

// statusOf classifies an error from the service layer.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errBadInput),
		errors.Is(err, model.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, model.ErrUnknownMethod),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, model.ErrInvalidRoom):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRoomUnavailable),
		errors.Is(err, service.ErrAlreadySettled),
		errors.Is(err, repository.ErrRoomExists),
		errors.Is(err, service.ErrBookingNotPayable),
		errors.Is(err, service.ErrMethodMismatch):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInvalidBookingTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSettlementUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": "..."}. Internal errors are logged
// and reported without detail.
func writeError(c echo.Context, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}
