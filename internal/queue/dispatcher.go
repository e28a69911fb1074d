package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrSinkFull is returned by Notify when the buffer has no room. The
	// event is dropped.
	ErrSinkFull = errors.New("notification buffer full")
	// ErrSinkClosed is returned by Notify after Close.
	ErrSinkClosed = errors.New("notification sink closed")
)

// Dispatcher decouples event emission from delivery. Notify only enqueues;
// worker goroutines publish through the wrapped EventPublisher.
type Dispatcher struct {
	pub     EventPublisher
	timeout time.Duration
	events  chan Event
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(pub EventPublisher, buffer, workers int, publishTimeout time.Duration) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	if workers < 1 {
		workers = 1
	}
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	d := &Dispatcher{pub: pub, timeout: publishTimeout, events: make(chan Event, buffer)}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify never blocks.
func (d *Dispatcher) Notify(_ context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrSinkClosed
	}
	select {
	case d.events <- ev:
		return nil
	default:
		return ErrSinkFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.pub.Publish(ctx, ev); err != nil {
			log.Printf("dispatcher: %s for booking %s not delivered: %v", ev.Kind, ev.BookingID, err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain or ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
