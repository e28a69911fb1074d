package handler

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type roomResponse struct {
	HotelID            uint64 `json:"hotel_id"`
	RoomID             uint64 `json:"room_id"`
	Category           string `json:"category"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	MaxOccupancy       int    `json:"max_occupancy"`
	State              string `json:"state"`
}

func toRoom(r model.Room) roomResponse {
	return roomResponse{
		HotelID:            r.Key.HotelID,
		RoomID:             r.Key.RoomID,
		Category:           string(r.Category),
		PricePerNightCents: r.PricePerNightCents,
		MaxOccupancy:       r.MaxOccupancy,
		State:              string(r.State),
	}
}

type bookingResponse struct {
	ID               string `json:"id"`
	HotelID          uint64 `json:"hotel_id"`
	RoomID           uint64 `json:"room_id"`
	UserID           uint64 `json:"user_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Nights           int    `json:"nights"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

func toBooking(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:               b.ID,
		HotelID:          b.Room.HotelID,
		RoomID:           b.Room.RoomID,
		UserID:           b.UserID,
		CheckIn:          b.CheckIn.Format(model.DateLayout),
		CheckOut:         b.CheckOut.Format(model.DateLayout),
		Nights:           b.Nights(),
		TotalAmountCents: b.TotalAmountCents,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookings(bs []model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBooking(b))
	}
	return out
}

type paymentResponse struct {
	ID            string  `json:"id"`
	BookingID     string  `json:"booking_id"`
	Method        string  `json:"method"`
	AmountCents   int64   `json:"amount_cents"`
	Status        string  `json:"status"`
	TransactionAt *string `json:"transaction_at"`
	CreatedAt     string  `json:"created_at"`
}

func toPayment(p model.Payment) paymentResponse {
	out := paymentResponse{
		ID:          p.ID,
		BookingID:   p.BookingID,
		Method:      string(p.Method),
		AmountCents: p.AmountCents,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.TransactionAt != nil {
		s := p.TransactionAt.Format(time.RFC3339)
		out.TransactionAt = &s
	}
	return out
}
