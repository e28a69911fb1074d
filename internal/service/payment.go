package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// PaymentProcessor records payments and settles each of them exactly once.
type PaymentProcessor struct {
	store  repository.Store
	caps   Capabilities
	locker lock.Locker
	sink   NotificationSink
	now    func() time.Time
	newID  func() string
}

func NewPaymentProcessor(store repository.Store, caps Capabilities, locker lock.Locker, sink NotificationSink) *PaymentProcessor {
	if caps == nil {
		caps = DefaultCapabilities()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &PaymentProcessor{
		store:  store,
		caps:   caps,
		locker: locker,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// CreatePayment records a PENDING payment for a booking that is not
// cancelled.
func (p *PaymentProcessor) CreatePayment(ctx context.Context, bookingID string, method string, amountCents int64) (_ model.Payment, err error) {
	ctx, span := tracer.Start(ctx, "PaymentProcessor.CreatePayment", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("method", method),
	))
	defer func() { endSpan(span, err) }()

	if amountCents <= 0 {
		return model.Payment{}, fmt.Errorf("%w: amount %d", ErrInvalidAmount, amountCents)
	}
	m, err := model.ParsePaymentMethod(method)
	if err != nil {
		return model.Payment{}, err
	}
	if _, ok := p.caps[m]; !ok {
		return model.Payment{}, fmt.Errorf("%w: %s has no capability", model.ErrUnknownMethod, m)
	}

	var created model.Payment
	err = p.store.Atomic(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return fmt.Errorf("%w: %s", ErrBookingNotPayable, bookingID)
		}
		pay := model.Payment{
			ID:          p.newID(),
			BookingID:   bookingID,
			Method:      m,
			AmountCents: amountCents,
			Status:      model.PaymentPending,
			CreatedAt:   p.now(),
		}
		if err := tx.InsertPayment(ctx, pay); err != nil {
			return err
		}
		created = pay
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return created, nil
}

// Settle moves a PENDING payment to SUCCESS or FAILED through the
// capability of its method. An empty method means the recorded one. A
// transient failure or a cancelled ctx leaves the payment PENDING.
func (p *PaymentProcessor) Settle(ctx context.Context, paymentID string, method string) (_ model.Payment, err error) {
	ctx, span := tracer.Start(ctx, "PaymentProcessor.Settle", trace.WithAttributes(
		attribute.String("payment_id", paymentID),
	))
	defer func() { endSpan(span, err) }()

	release, err := p.locker.Acquire(ctx, "settle:"+paymentID)
	if err != nil {
		return model.Payment{}, fmt.Errorf("acquire settle lock: %w", err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			log.Printf("payments: release settle lock for %s: %v", paymentID, rerr)
		}
	}()

	pay, err := p.store.GetPayment(ctx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if pay.Status.Settled() {
		return model.Payment{}, fmt.Errorf("%w: payment %s is %s", ErrAlreadySettled, paymentID, pay.Status)
	}
	if strings.TrimSpace(method) != "" {
		m, err := model.ParsePaymentMethod(method)
		if err != nil {
			return model.Payment{}, err
		}
		if m != pay.Method {
			return model.Payment{}, fmt.Errorf("%w: recorded %s, got %s", ErrMethodMismatch, pay.Method, m)
		}
	}
	capability, ok := p.caps[pay.Method]
	if !ok {
		return model.Payment{}, fmt.Errorf("%w: %s has no capability", model.ErrUnknownMethod, pay.Method)
	}

	outcome, perr := capability.Process(ctx, pay.AmountCents)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if cerr := ctx.Err(); cerr != nil {
		return model.Payment{}, cerr
	}
	if perr != nil {
		if errors.Is(perr, context.Canceled) || errors.Is(perr, context.DeadlineExceeded) {
			return model.Payment{}, perr
		}
		return model.Payment{}, fmt.Errorf("%w: %s: %v", ErrSettlementUnavailable, pay.Method, perr)
	}

	var status model.PaymentStatus
	switch outcome {
	case OutcomeSuccess:
		status = model.PaymentSuccess
	case OutcomeDeclined:
		status = model.PaymentFailed
	default:
		return model.Payment{}, fmt.Errorf("%w: %s returned %s", ErrSettlementUnavailable, pay.Method, outcome)
	}

	at := p.now()
	err = p.store.Atomic(ctx, func(tx repository.Tx) error {
		return tx.SettlePayment(ctx, paymentID, status, at)
	})
	if err != nil {
		return model.Payment{}, err
	}
	pay.Status = status
	pay.TransactionAt = &at

	var userID uint64
	if b, berr := p.store.GetBooking(ctx, pay.BookingID); berr == nil {
		userID = b.UserID
	} else {
		log.Printf("payments: load booking %s for event: %v", pay.BookingID, berr)
	}
	emit(ctx, p.sink, "payments", queue.PaymentSettledEvent(pay, userID))
	return pay, nil
}

func (p *PaymentProcessor) GetPayment(ctx context.Context, id string) (model.Payment, error) {
	return p.store.GetPayment(ctx, id)
}

// GetPaymentsForBooking fails with repository.ErrBookingNotFound for an
// unknown booking.
func (p *PaymentProcessor) GetPaymentsForBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	if _, err := p.store.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return p.store.ListPaymentsByBooking(ctx, bookingID)
}
