package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig describes the notification queue and its bindings on the
// events exchange.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
	LogDir   string
}

// StartNotificationConsumer connects to RabbitMQ, binds the notification
// queue to the events exchange and delivers every event by appending a
// line to <LogDir>/notifications.log. It reconnects with backoff and
// returns only when ctx is cancelled.
func StartNotificationConsumer(ctx context.Context, cfg ConsumerConfig) error {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Printf("notifier: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notifier: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		log.Printf("notifier: set QoS failed: %v", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := HandleDelivery(cfg.LogDir, d.Body); err != nil {
			log.Printf("notifier: handle %s failed: %v", d.RoutingKey, err)
			_ = d.Nack(false, false) // do not requeue a poison message
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleDelivery decodes one message body and appends its notification
// line to the log file.
func HandleDelivery(logDir string, body []byte) error {
	ev, err := DecodeEvent(body)
	if err != nil {
		return err
	}
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatNotification(ev) + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatNotification renders the single-line, human-friendly message for ev.
func FormatNotification(ev Event) string {
	switch ev.Kind {
	case KindBookingCreated:
		return fmt.Sprintf("[%s] Booking created | booking_id=%s | user_id=%d | room=%d/%d | %s -> %s | total=%d cents",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.HotelID, ev.RoomID, ev.CheckIn, ev.CheckOut, ev.AmountCents)
	case KindBookingConfirmed:
		return fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%d | room=%d/%d",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.HotelID, ev.RoomID)
	case KindBookingCancelled:
		return fmt.Sprintf("[%s] Booking cancelled | booking_id=%s | user_id=%d | room=%d/%d",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.HotelID, ev.RoomID)
	case KindPaymentSettled:
		return fmt.Sprintf("[%s] Payment %s | payment_id=%s | booking_id=%s | user_id=%d | amount=%d cents",
			ev.OccurredAt, ev.Status, ev.PaymentID, ev.BookingID, ev.UserID, ev.AmountCents)
	}
	return fmt.Sprintf("[%s] %s | booking_id=%s | user_id=%d", ev.OccurredAt, ev.Kind, ev.BookingID, ev.UserID)
}
