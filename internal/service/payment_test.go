package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

func newPayments(t *testing.T, caps Capabilities) (*PaymentProcessor, *BookingLedger, model.Booking, *recordingSink) {
	t.Helper()
	l, store, sink := newLedger(t)
	b, err := book(l, 7, "2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatal(err)
	}
	return NewPaymentProcessor(store, caps, lock.NewLocalLocker(), sink), l, b, sink
}

func TestCreatePaymentValidation(t *testing.T) {
	p, l, b, _ := newPayments(t, nil)
	ctx := context.Background()

	if _, err := p.CreatePayment(ctx, b.ID, "CREDIT_CARD", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := p.CreatePayment(ctx, b.ID, "CASH", 100); !errors.Is(err, model.ErrUnknownMethod) {
		t.Fatalf("unknown method: got %v", err)
	}
	if _, err := p.CreatePayment(ctx, "missing", "PAYPAL", 100); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("unknown booking: got %v", err)
	}
	if _, err := l.CancelBooking(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := p.CreatePayment(ctx, b.ID, "PAYPAL", 100); !errors.Is(err, ErrBookingNotPayable) {
		t.Fatalf("cancelled booking: got %v", err)
	}
}

func TestCreatePaymentOmitsUnregisteredMethod(t *testing.T) {
	p, _, b, _ := newPayments(t, Capabilities{model.MethodStripe: Stripe})
	if _, err := p.CreatePayment(context.Background(), b.ID, "paypal", 100); !errors.Is(err, model.ErrUnknownMethod) {
		t.Fatalf("got %v", err)
	}
}

func TestSettleSuccessThenAlreadySettled(t *testing.T) {
	p, _, b, sink := newPayments(t, nil)
	ctx := context.Background()

	pay, err := p.CreatePayment(ctx, b.ID, "credit_card", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if pay.Status != model.PaymentPending || pay.TransactionAt != nil {
		t.Fatalf("new payment %+v", pay)
	}
	settled, err := p.Settle(ctx, pay.ID, "")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != model.PaymentSuccess || settled.TransactionAt == nil {
		t.Fatalf("settled %+v", settled)
	}

	if _, err := p.Settle(ctx, pay.ID, "CREDIT_CARD"); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second settle: got %v", err)
	}
	again, _ := p.GetPayment(ctx, pay.ID)
	if again.Status != model.PaymentSuccess || !again.TransactionAt.Equal(*settled.TransactionAt) {
		t.Fatalf("payment changed by second settle: %+v", again)
	}

	var settledEvents int
	for _, k := range sink.kinds() {
		if k == queue.KindPaymentSettled {
			settledEvents++
		}
	}
	if settledEvents != 1 {
		t.Fatalf("payment.settled events = %d", settledEvents)
	}
}

func TestSettleDeclinedIsFinal(t *testing.T) {
	declined := CapabilityFunc(func(context.Context, int64) (Outcome, error) { return OutcomeDeclined, nil })
	p, _, b, _ := newPayments(t, Capabilities{model.MethodPaypal: declined})
	ctx := context.Background()

	pay, _ := p.CreatePayment(ctx, b.ID, "PAYPAL", 500)
	got, err := p.Settle(ctx, pay.ID, "PAYPAL")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.PaymentFailed || got.TransactionAt == nil {
		t.Fatalf("declined payment %+v", got)
	}
	if _, err := p.Settle(ctx, pay.ID, ""); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("settle after FAILED: got %v", err)
	}
}

func TestSettleTransientLeavesPending(t *testing.T) {
	var calls int32
	flaky := CapabilityFunc(func(context.Context, int64) (Outcome, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return OutcomeTransientError, errors.New("gateway timeout")
		}
		return OutcomeSuccess, nil
	})
	p, _, b, _ := newPayments(t, Capabilities{model.MethodStripe: flaky})
	ctx := context.Background()

	pay, _ := p.CreatePayment(ctx, b.ID, "STRIPE", 700)
	if _, err := p.Settle(ctx, pay.ID, ""); !errors.Is(err, ErrSettlementUnavailable) {
		t.Fatalf("transient: got %v", err)
	}
	still, _ := p.GetPayment(ctx, pay.ID)
	if still.Status != model.PaymentPending || still.TransactionAt != nil {
		t.Fatalf("payment after transient failure %+v", still)
	}
	got, err := p.Settle(ctx, pay.ID, "")
	if err != nil || got.Status != model.PaymentSuccess {
		t.Fatalf("retry: %v %+v", err, got)
	}
}

func TestSettleContextCancelledLeavesPending(t *testing.T) {
	slow := CapabilityFunc(func(ctx context.Context, _ int64) (Outcome, error) {
		<-ctx.Done()
		return OutcomeTransientError, ctx.Err()
	})
	p, _, b, _ := newPayments(t, Capabilities{model.MethodCreditCard: slow})

	pay, _ := p.CreatePayment(context.Background(), b.ID, "CREDIT_CARD", 900)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Settle(ctx, pay.ID, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
	still, _ := p.GetPayment(context.Background(), pay.ID)
	if still.Status != model.PaymentPending {
		t.Fatalf("status = %s", still.Status)
	}
}

func TestSettleMethodMismatch(t *testing.T) {
	p, _, b, _ := newPayments(t, nil)
	ctx := context.Background()

	pay, _ := p.CreatePayment(ctx, b.ID, "PAYPAL", 100)
	if _, err := p.Settle(ctx, pay.ID, "STRIPE"); !errors.Is(err, ErrMethodMismatch) {
		t.Fatalf("got %v", err)
	}
	if _, err := p.Settle(ctx, "nope", ""); !errors.Is(err, repository.ErrPaymentNotFound) {
		t.Fatalf("unknown payment: got %v", err)
	}
}

func TestConcurrentSettleExactlyOnce(t *testing.T) {
	var processed int32
	counting := CapabilityFunc(func(context.Context, int64) (Outcome, error) {
		atomic.AddInt32(&processed, 1)
		time.Sleep(5 * time.Millisecond)
		return OutcomeSuccess, nil
	})
	p, _, b, _ := newPayments(t, Capabilities{model.MethodCreditCard: counting})
	pay, _ := p.CreatePayment(context.Background(), b.ID, "CREDIT_CARD", 10000)

	const n = 16
	var (
		wg      sync.WaitGroup
		ok      int32
		settled int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Settle(context.Background(), pay.ID, "")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrAlreadySettled):
				atomic.AddInt32(&settled, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || settled != n-1 {
		t.Fatalf("ok=%d already=%d", ok, settled)
	}
	if processed != 1 {
		t.Fatalf("capability invoked %d times", processed)
	}
}

func TestGetPaymentsForBooking(t *testing.T) {
	p, _, b, _ := newPayments(t, nil)
	ctx := context.Background()

	if _, err := p.CreatePayment(ctx, b.ID, "PAYPAL", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := p.CreatePayment(ctx, b.ID, "STRIPE", 200); err != nil {
		t.Fatal(err)
	}
	list, err := p.GetPaymentsForBooking(ctx, b.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if _, err := p.GetPaymentsForBooking(ctx, "nope"); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("unknown booking: got %v", err)
	}
}

func TestStubCapabilities(t *testing.T) {
	ctx := context.Background()
	for m, c := range DefaultCapabilities() {
		if out, err := c.Process(ctx, 1); err != nil || out != OutcomeSuccess {
			t.Errorf("%s positive: %v %v", m, out, err)
		}
		if out, _ := c.Process(ctx, 0); out != OutcomeDeclined {
			t.Errorf("%s zero: %v", m, out)
		}
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if out, err := CreditCard.Process(cancelled, 1); out != OutcomeTransientError || err == nil {
		t.Fatalf("cancelled ctx: %v %v", out, err)
	}
}

// A room is booked, paid by credit card, settled and confirmed.
func TestBookPayConfirmFlow(t *testing.T) {
	p, l, b, sink := newPayments(t, nil)
	ctx := context.Background()

	if b.TotalAmountCents != 10000 || b.Nights() != 2 {
		t.Fatalf("booking %+v", b)
	}
	pay, err := p.CreatePayment(ctx, b.ID, "CREDIT_CARD", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Settle(ctx, pay.ID, "CREDIT_CARD"); err != nil {
		t.Fatal(err)
	}
	confirmed, err := l.ConfirmBooking(ctx, b.ID)
	if err != nil || confirmed.Status != model.BookingConfirmed {
		t.Fatalf("confirm: %v %+v", err, confirmed)
	}
	room, _ := l.GetRoom(ctx, testRoom)
	if room.State != model.StateBooked {
		t.Fatalf("room state = %s", room.State)
	}
	want := []queue.EventKind{queue.KindBookingCreated, queue.KindPaymentSettled, queue.KindBookingConfirmed}
	got := sink.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}
